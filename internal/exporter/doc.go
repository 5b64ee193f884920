// Package exporter renders composite specs to video files, chunking long
// renders into bounded windows and stitching them with the concat demuxer.
package exporter
