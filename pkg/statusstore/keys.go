package statusstore

import "fmt"

const taskIndexKey = "tasks:all"

func keyMeta(taskID string) string   { return fmt.Sprintf("task:%s:meta", taskID) }
func keyStatus(taskID string) string { return fmt.Sprintf("task:%s:status", taskID) }
func keyResult(taskID string) string { return fmt.Sprintf("task:%s:result", taskID) }
