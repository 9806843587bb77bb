package library_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-study/internal/library"
)

const algebraYAML = `
id: algebra-f1
name: Algebra
color: "#3366ff"
description: Variables and expressions
question_sets:
  - name: Basics
    questions:
      - question: "2+2?"
        correct_answer: "4"
        wrong_answers: ["3", "5", "22"]
      - question: "x + x?"
        correct_answer: "2x"
        wrong_answers: ["x2", "x", "2"]
  - questions:
      - question: "3*3?"
        correct_answer: "9"
        wrong_answers: ["6", "33", "12"]
`

const biologyYAML = `
name: Biology
color: "#22aa44"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func setupLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "math", "algebra.yaml"), algebraYAML)
	writeFile(t, filepath.Join(dir, "science", "biology.yml"), biologyYAML)
	return dir
}

func TestLoader_LoadEntries(t *testing.T) {
	loader, err := library.NewLoader(setupLibrary(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	entries := loader.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() = %d, want 2", len(entries))
	}
	if entries[0].Name != "Algebra" || entries[1].Name != "Biology" {
		t.Errorf("Entries() names = %q, %q; want path order", entries[0].Name, entries[1].Name)
	}
	if filepath.Base(entries[1].Path()) != "biology.yml" {
		t.Errorf("Path() = %q", entries[1].Path())
	}
}

func TestLoader_SkipsInvalidFiles(t *testing.T) {
	dir := setupLibrary(t)
	writeFile(t, filepath.Join(dir, "broken.yaml"), "name: [unterminated")
	writeFile(t, filepath.Join(dir, "nameless.yaml"), "color: \"#000\"\n")
	writeFile(t, filepath.Join(dir, "README.md"), "# not a course")

	loader, err := library.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if got := len(loader.Entries()); got != 2 {
		t.Errorf("Entries() = %d, want 2", got)
	}
}

func TestLoader_MissingDir(t *testing.T) {
	_, err := library.NewLoader(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Error("NewLoader() error = nil for missing directory")
	}
}

func TestEntry_Course(t *testing.T) {
	loader, err := library.NewLoader(setupLibrary(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	algebra := loader.Entries()[0].Course()
	if algebra.ID != "algebra-f1" {
		t.Errorf("ID = %q, want algebra-f1", algebra.ID)
	}
	if len(algebra.QuestionSets) != 2 {
		t.Fatalf("QuestionSets = %d, want 2", len(algebra.QuestionSets))
	}
	if algebra.QuestionSets[0].Name != "Basics" {
		t.Errorf("first set = %q, want Basics", algebra.QuestionSets[0].Name)
	}
	if algebra.QuestionSets[1].Name != "Question Set 2" {
		t.Errorf("unnamed set = %q, want Question Set 2", algebra.QuestionSets[1].Name)
	}
	q := algebra.QuestionSets[0].Questions[1]
	if q.Text != "x + x?" || q.CorrectAnswer != "2x" || len(q.WrongAnswers) != 3 {
		t.Errorf("question = %+v", q)
	}

	biology := loader.Entries()[1].Course()
	if biology.ID == "" {
		t.Error("ID is empty, want generated id")
	}
	if biology.QuestionSets == nil {
		t.Error("QuestionSets = nil, want empty")
	}
}
