package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/store"
)

// midpoint always draws n/2: easy (1..10) targets 6, medium (1..50) targets 26.
var midpoint = game.RandFunc(func(n int) int { return n / 2 })

func newTestHandler(kv store.KV) *Handler {
	return NewHandler(Options{KV: kv, Rand: midpoint})
}

func TestHandleCommands(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(nil)

	steps := []struct {
		in         string
		wantPrefix string
		picker     bool
	}{
		{"/start", "Welcome to Number Guess!", true},
		{"/new", "Pick a difficulty:", true},
		{"5", "Please start a new game first!", true},
		{"/new extreme", `Unknown difficulty "extreme"`, true},
		{"/new@NumGuessBot easy", "New game started! Guess a number between 1 and 10. You have 5 attempts.", false},
		{"abc", "Please enter a valid number between 1 and 10", false},
		{"11", "Please enter a valid number between 1 and 10", false},
		{"3", "Wrong! Try a higher number. 4 attempts left.", false},
		{"/hint", "The number is in the third quarter (6-7). (3 attempts left)", false},
		{"9", "Wrong! Try a lower number. 2 attempts left.", false},
		{"6", "Correct! The number was 6. You earned 2 points! New high score!", false},
		{"/score", "Score: 2 | High score: 2", false},
		{"/dance", "Unknown command.", false},
		{"/help", "Guess the secret number!", false},
	}
	for _, s := range steps {
		r := h.Handle(ctx, 42, s.in)
		if !strings.HasPrefix(r.Text, s.wantPrefix) {
			t.Fatalf("Handle(%q) = %q, expected prefix %q", s.in, r.Text, s.wantPrefix)
		}
		if r.Picker != s.picker {
			t.Errorf("Handle(%q) picker = %v, expected %v", s.in, r.Picker, s.picker)
		}
	}
}

func TestHandleHintUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(nil)
	h.Handle(ctx, 1, "/new easy")
	for _, g := range []string{"1", "2", "3", "4"} {
		h.Handle(ctx, 1, g)
	}
	r := h.Handle(ctx, 1, "/hint")
	if r.Text != "Not enough attempts left for a hint." {
		t.Errorf("hint with one attempt left = %q", r.Text)
	}
}

func TestHandleLossAndReset(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(nil)
	h.Handle(ctx, 7, "/new easy")
	var last Reply
	for i := 0; i < 5; i++ {
		last = h.Handle(ctx, 7, "1")
	}
	if !strings.HasPrefix(last.Text, "Game Over! The number was 6.") {
		t.Fatalf("after five misses: %q", last.Text)
	}
	r := h.Handle(ctx, 7, "/reset")
	if !strings.HasPrefix(r.Text, "New game started! Guess a number between 1 and 10") {
		t.Errorf("/reset = %q", r.Text)
	}
}

func TestChatsKeepSeparateHighScores(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	h := newTestHandler(kv)

	h.Handle(ctx, 100, "/new medium")
	h.Handle(ctx, 100, "26") // 2 * (7 - 1 + 1)

	v, ok, _ := kv.Get(ctx, "tg:100:highScore")
	if !ok || v != "14" {
		t.Fatalf("stored high score = %q, %v", v, ok)
	}
	if r := h.Handle(ctx, 200, "/score"); r.Text != "Score: 0 | High score: 0" {
		t.Errorf("other chat /score = %q", r.Text)
	}

	// a fresh handler over the same store picks the high score back up
	again := newTestHandler(kv)
	if r := again.Handle(ctx, 100, "/score"); r.Text != "Score: 0 | High score: 14" {
		t.Errorf("after restart /score = %q", r.Text)
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct{ in, cmd, arg string }{
		{"/new hard", "/new", "hard"},
		{"  /NEW   Medium ", "/new", "Medium"},
		{"/hint@SomeBot", "/hint", ""},
		{"42", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		cmd, arg := splitCommand(tc.in)
		if cmd != tc.cmd || arg != tc.arg {
			t.Errorf("splitCommand(%q) = %q, %q; expected %q, %q", tc.in, cmd, arg, tc.cmd, tc.arg)
		}
	}
}
