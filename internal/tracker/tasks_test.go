package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/alfredjeanlab/secondscreen/internal/model"
	"github.com/alfredjeanlab/secondscreen/internal/store"
)

func TestAddTask(t *testing.T) {
	tr, clock, rec := newTestTracker(t)
	mustRegister(t, tr, "/a")
	clock.Advance(time.Second)
	before := rec.calls

	task, err := tr.AddTask("/a", "write docs")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.ID == "" || task.Text != "write docs" || task.Completed || task.CompletedAt != nil {
		t.Errorf("unexpected task: %+v", task)
	}
	sess, _ := tr.Get("/a")
	if len(sess.Tasks) != 1 || sess.Tasks[0].ID != task.ID {
		t.Errorf("Tasks = %+v", sess.Tasks)
	}
	if !sess.LastUpdated.Equal(clock.Now()) {
		t.Error("LastUpdated not bumped")
	}
	if rec.calls != before+1 {
		t.Errorf("change calls = %d, want %d", rec.calls, before+1)
	}
}

func TestAddTask_Errors(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	mustRegister(t, tr, "/a")

	var ve *model.ValidationError
	if _, err := tr.AddTask("/a", ""); !errors.As(err, &ve) {
		t.Errorf("missing text: got %v, want ValidationError", err)
	}
	if _, err := tr.AddTask("", "x"); !errors.As(err, &ve) {
		t.Errorf("missing directory: got %v, want ValidationError", err)
	}
	// Task operations never attribute to a parent.
	if _, err := tr.AddTask("/a/sub", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("subdirectory: got %v, want ErrNotFound", err)
	}
}

func TestAddTask_IDsUniqueWithinSession(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	tr := New(store.New(), Options{NewTaskID: func(taken func(string) bool) (string, error) {
		for len(ids) > 0 {
			id := ids[0]
			ids = ids[1:]
			if !taken(id) {
				return id, nil
			}
		}
		return "", errors.New("out of ids")
	}})
	mustRegister(t, tr, "/a")

	first := mustAddTask(t, tr, "/a", "one")
	second := mustAddTask(t, tr, "/a", "two")
	if first.ID != "dup" || second.ID != "fresh" {
		t.Errorf("ids = %q, %q; want dup, fresh", first.ID, second.ID)
	}
	if _, err := tr.AddTask("/a", "three"); err == nil {
		t.Error("expected id generation error")
	}
}

func TestUpdateTask_CompleteAndReopen(t *testing.T) {
	tr, clock, rec := newTestTracker(t)
	mustRegister(t, tr, "/a")
	task := mustAddTask(t, tr, "/a", "x")
	clock.Advance(time.Second)
	before := rec.calls

	got, err := tr.UpdateTask(TaskUpdate{Directory: "/a", TaskID: task.ID, Completed: ptr(true)})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(clock.Now()) {
		t.Errorf("after complete: %+v", got)
	}
	completedAt := *got.CompletedAt

	// Completing again changes nothing.
	clock.Advance(time.Second)
	got, _ = tr.UpdateTask(TaskUpdate{Directory: "/a", TaskID: task.ID, Completed: ptr(true)})
	if !got.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt moved on repeat: %v", got.CompletedAt)
	}
	if rec.calls != before+1 {
		t.Errorf("change calls = %d, want %d", rec.calls, before+1)
	}

	got, _ = tr.UpdateTask(TaskUpdate{Directory: "/a", TaskID: task.ID, Completed: ptr(false)})
	if got.Completed || got.CompletedAt != nil {
		t.Errorf("after reopen: %+v", got)
	}
	if rec.calls != before+2 {
		t.Errorf("change calls = %d, want %d", rec.calls, before+2)
	}
}

func TestUpdateTask_EditText(t *testing.T) {
	tr, _, rec := newTestTracker(t)
	mustRegister(t, tr, "/a")
	task := mustAddTask(t, tr, "/a", "old")
	before := rec.calls

	got, err := tr.UpdateTask(TaskUpdate{Directory: "/a", TaskID: task.ID, Text: ptr("new")})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Text != "new" {
		t.Errorf("Text = %q, want new", got.Text)
	}
	tr.UpdateTask(TaskUpdate{Directory: "/a", TaskID: task.ID, Text: ptr("new")})
	if rec.calls != before+1 {
		t.Errorf("change calls = %d, want %d", rec.calls, before+1)
	}
}

func TestUpdateTask_Errors(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	mustRegister(t, tr, "/a")

	var ve *model.ValidationError
	if _, err := tr.UpdateTask(TaskUpdate{Directory: "/a"}); !errors.As(err, &ve) {
		t.Errorf("missing taskId: got %v", err)
	}
	if _, err := tr.UpdateTask(TaskUpdate{Directory: "/b", TaskID: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown directory: got %v", err)
	}
	_, err := tr.UpdateTask(TaskUpdate{Directory: "/a", TaskID: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown task: got %v", err)
	}
	if err.Error() != "task not found: x" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDeleteTask(t *testing.T) {
	tr, _, rec := newTestTracker(t)
	mustRegister(t, tr, "/a")
	task := mustAddTask(t, tr, "/a", "x")
	before := rec.calls

	existed, err := tr.DeleteTask("/a", task.ID)
	if err != nil || !existed {
		t.Fatalf("DeleteTask = %v, %v", existed, err)
	}
	existed, err = tr.DeleteTask("/a", task.ID)
	if err != nil || existed {
		t.Fatalf("second DeleteTask = %v, %v", existed, err)
	}
	if rec.calls != before+1 {
		t.Errorf("change calls = %d, want %d", rec.calls, before+1)
	}
	if _, err := tr.DeleteTask("/b", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown directory: got %v", err)
	}
}
