package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/matchview"
	"github.com/park285/tictactoe-client/internal/msgcat"
)

type stubService struct {
	m     match.Match
	moves []int
}

func (s *stubService) FetchMatch(context.Context, match.ID) (match.Match, error) { return s.m, nil }

func (s *stubService) SubmitMove(_ context.Context, _ match.ID, cell int) (match.Match, error) {
	s.moves = append(s.moves, cell)
	next := s.m
	next.Cells[cell] = match.MarkA
	next.MoveCount++
	next.TurnOwner = match.MarkB
	s.m = next
	return next, nil
}

func TestMatchArg(t *testing.T) {
	id, err := matchArg([]string{" #42 "})
	require.NoError(t, err)
	assert.Equal(t, match.ID("42"), id)

	_, err = matchArg(nil)
	assert.Error(t, err)
}

func TestRun_UnknownCommand(t *testing.T) {
	a := &app{logger: zap.NewNop()}
	err := a.run(context.Background(), "dance", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dance")
}

func TestHandleInput(t *testing.T) {
	svc := &stubService{m: match.Match{
		ID:           "5",
		Status:       match.StatusInProgress,
		TurnOwner:    match.MarkA,
		ParticipantA: match.Participant{UserID: "7", Kind: match.KindHuman},
		ParticipantB: match.Participant{UserID: "9", Kind: match.KindHuman},
	}}
	r := matchview.New(svc, "7")
	h, err := matchview.Open(context.Background(), r, nil, "5")
	require.NoError(t, err)
	defer h.Close()

	var out bytes.Buffer
	a := &app{cat: msgcat.Default(), logger: zap.NewNop(), out: &out}
	ctx := context.Background()

	quit, err := a.handleInput(ctx, h, "4")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, []int{4}, svc.moves)

	// not our turn any more
	quit, err = a.handleInput(ctx, h, "0")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "! ")
	assert.Len(t, svc.moves, 1)

	_, err = a.handleInput(ctx, h, "abc")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "cell number")

	quit, err = a.handleInput(ctx, h, "q")
	require.NoError(t, err)
	assert.True(t, quit)
}
