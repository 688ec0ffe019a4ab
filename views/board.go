// Package views arranges tasks into the board and calendar layouts.
package views

import "github.com/erntsn/todo-app/models"

type Column struct {
	Status models.Status `json:"status"`
	Tasks  []models.Task `json:"tasks"`
}

// Board groups tasks into the four status columns, always in
// backlog, todo, inProgress, done order.
func Board(tasks []models.Task) []Column {
	cols := make([]Column, len(models.Statuses))
	index := make(map[models.Status]int, len(models.Statuses))
	for i, st := range models.Statuses {
		cols[i] = Column{Status: st, Tasks: []models.Task{}}
		index[st] = i
	}
	for i := range tasks {
		c := index[tasks[i].EffectiveStatus()]
		cols[c].Tasks = append(cols[c].Tasks, tasks[i])
	}
	return cols
}
