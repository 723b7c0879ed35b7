package model

import (
	"reflect"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"todo", StatusTodo, false},
		{"In Progress", StatusInProgress, false},
		{"in-progress", StatusInProgress, false},
		{" DONE ", StatusDone, false},
		{"blocked", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusNextWraps(t *testing.T) {
	if StatusTodo.Next() != StatusInProgress {
		t.Errorf("todo.Next() = %q", StatusTodo.Next())
	}
	if StatusDone.Next() != StatusTodo {
		t.Errorf("done.Next() = %q", StatusDone.Next())
	}
}

func TestTaskPatchApplyLeavesOriginalUntouched(t *testing.T) {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orig := Task{
		ID:           "t1",
		Title:        "Old",
		Description:  "keep me",
		Status:       StatusTodo,
		TotalMinutes: 30,
		UpdatedAt:    &updated,
	}
	before := orig.Clone()

	title := "New"
	got := TaskPatch{Title: &title}.Apply(orig)

	if got.Title != "New" || got.Description != "keep me" || got.TotalMinutes != 30 {
		t.Errorf("unexpected patched task: %+v", got)
	}
	if !reflect.DeepEqual(orig, before) {
		t.Errorf("original mutated: %+v", orig)
	}
	if got.UpdatedAt == orig.UpdatedAt {
		t.Error("patched task shares UpdatedAt pointer with original")
	}
}
