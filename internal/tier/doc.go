// Package tier defines subscription tier permissions and the policy checks
// applied before a task is admitted to the pipeline.
package tier
