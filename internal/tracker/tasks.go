package tracker

import (
	"fmt"

	"github.com/alfredjeanlab/secondscreen/internal/model"
)

// AddTask appends a new open task to the session registered for dir.
// Task operations match directories exactly.
func (t *Tracker) AddTask(dir, text string) (model.Task, error) {
	var ve model.ValidationError
	ve.Required("directory", dir)
	ve.Required("text", text)
	if err := ve.Err(); err != nil {
		return model.Task{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, err := t.exact(dir)
	if err != nil {
		return model.Task{}, err
	}
	id, err := t.newTaskID(func(id string) bool { return sess.FindTask(id) != nil })
	if err != nil {
		return model.Task{}, fmt.Errorf("generating task id: %w", err)
	}

	task := model.Task{ID: id, Text: text}
	sess.Tasks = append(sess.Tasks, task)
	sess.LastUpdated = t.now()
	t.log.Info().Str("directory", dir).Str("task", id).Str("text", truncate(text, 60)).Msg("task added")
	t.changed()
	return task, nil
}

// TaskUpdate is a partial task update. Nil fields are left untouched.
type TaskUpdate struct {
	Directory string
	TaskID    string
	Text      *string
	Completed *bool
}

// UpdateTask edits or toggles a task. It reports a change only when the
// text or completion state actually differs.
func (t *Tracker) UpdateTask(u TaskUpdate) (model.Task, error) {
	var ve model.ValidationError
	ve.Required("directory", u.Directory)
	ve.Required("taskId", u.TaskID)
	if err := ve.Err(); err != nil {
		return model.Task{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, err := t.exact(u.Directory)
	if err != nil {
		return model.Task{}, err
	}
	task := sess.FindTask(u.TaskID)
	if task == nil {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, u.TaskID)
	}

	now := t.now()
	changed := false
	if u.Text != nil && *u.Text != task.Text {
		task.Text = *u.Text
		changed = true
	}
	if u.Completed != nil && task.SetCompleted(*u.Completed, now) {
		changed = true
	}
	out := *task
	if out.CompletedAt != nil {
		ts := *out.CompletedAt
		out.CompletedAt = &ts
	}
	if !changed {
		return out, nil
	}

	sess.LastUpdated = now
	t.log.Info().Str("directory", u.Directory).Str("task", u.TaskID).Bool("completed", task.Completed).Msg("task updated")
	t.changed()
	return out, nil
}

// DeleteTask removes a task. An unknown task id is not an error; it
// reports whether the task existed.
func (t *Tracker) DeleteTask(dir, taskID string) (bool, error) {
	var ve model.ValidationError
	ve.Required("directory", dir)
	ve.Required("taskId", taskID)
	if err := ve.Err(); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, err := t.exact(dir)
	if err != nil {
		return false, err
	}
	if !sess.RemoveTask(taskID) {
		return false, nil
	}
	sess.LastUpdated = t.now()
	t.log.Info().Str("directory", dir).Str("task", taskID).Msg("task deleted")
	t.changed()
	return true, nil
}

// exact must be called with t.mu held.
func (t *Tracker) exact(dir string) (*model.Session, error) {
	sess, ok := t.store.Get(dir)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, dir)
	}
	return sess, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
