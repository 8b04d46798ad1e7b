// Package presenter turns match views, lobby lists and rankings into text and board images.
package presenter

import (
	"context"
	"strings"

	"github.com/park285/tictactoe-client/internal/matchview"
	"github.com/park285/tictactoe-client/internal/msgcat"
)

// Presenter delivers formatted views without coupling to the command layer.
type Presenter struct {
	cat       *msgcat.Catalog
	renderer  BoardRenderer
	sendText  func(message string) error
	sendImage func(png []byte) error
}

// NewPresenter wires the output sinks. sendImage may be nil to skip image rendering.
func NewPresenter(cat *msgcat.Catalog, renderer BoardRenderer, sendText func(string) error, sendImage func([]byte) error) *Presenter {
	if cat == nil {
		cat = msgcat.Default()
	}
	if renderer == nil {
		renderer = NewPNGRenderer()
	}
	return &Presenter{cat: cat, renderer: renderer, sendText: sendText, sendImage: sendImage}
}

func (p *Presenter) Board(ctx context.Context, v matchview.View) error {
	if p == nil {
		return nil
	}

	if text := BoardText(p.cat, v); strings.TrimSpace(text) != "" && p.sendText != nil {
		if err := p.sendText(text); err != nil {
			return err
		}
	}

	if v.Loaded && p.sendImage != nil {
		img, err := p.renderer.RenderPNG(ctx, v, RenderOptions{
			Footer:    v.ObserverText(p.cat),
			ShowLegal: true,
		})
		if err != nil {
			return err
		}
		if err := p.sendImage(img); err != nil {
			return err
		}
	}

	return nil
}

func (p *Presenter) Text(message string) error {
	if p == nil || p.sendText == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendText(message)
}

func (p *Presenter) Catalog() *msgcat.Catalog { return p.cat }
