package app

import (
	"strconv"

	"todo-planner/internal/service"
)

func taskInput(title, due string) service.TaskInput {
	return service.TaskInput{Title: &title, DueDate: &due}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
