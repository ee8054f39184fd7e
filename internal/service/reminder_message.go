package service

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"todo-planner/internal/model"
	"todo-planner/internal/notify"
)

var reminderBody = template.Must(template.New("due_reminder").Parse(`Hi {{.Name}},

This is a friendly reminder that the following task is due tomorrow:

Title: {{.Title}}
{{- if .Description}}

Description:
{{.Description}}
{{- end}}

Category: {{.Category}}
Due date: {{.DueDate}}

Open My To-Do List: {{.AppURL}}

Thanks,
{{.AppName}}
`))

type reminderView struct {
	Name        string
	Title       string
	Description string
	Category    string
	DueDate     string
	AppURL      string
	AppName     string
}

// renderReminder builds the email for one task due tomorrow.
func renderReminder(task model.Task, user model.User, appName, appURL string) (notify.Message, error) {
	view := reminderView{
		Name:     strings.TrimSpace(user.Name),
		Title:    task.Title,
		Category: "N/A",
		AppURL:   appURL,
		AppName:  appName,
	}
	if view.Name == "" {
		view.Name = "there"
	}
	if task.Description != nil {
		view.Description = *task.Description
	}
	if task.Category != nil && *task.Category != "" {
		view.Category = *task.Category
	}
	if task.DueDate != nil {
		view.DueDate = task.DueDate.Time(time.UTC).Format("Jan 2, 2006")
	}

	var body bytes.Buffer
	if err := reminderBody.Execute(&body, view); err != nil {
		return notify.Message{}, err
	}
	return notify.Message{
		To:      user.Email,
		ToName:  strings.TrimSpace(user.Name),
		Subject: "Task Due Tomorrow: " + task.Title,
		Body:    body.String(),
	}, nil
}
