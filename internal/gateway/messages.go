package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"workshop-optimizer/internal/catalog"
	"workshop-optimizer/internal/search"
)

// Message kinds on the worker boundary.
const (
	KindCatalog   = "catalog"
	KindOptimize  = "optimize"
	KindReady     = "ready"
	KindOptimized = "optimized"
	KindError     = "error"
)

// ErrUnknownMessage is returned by DecodeMessage for frames without a known
// type.
var ErrUnknownMessage = errors.New("unknown message")

// Message is an inbound worker message.
type Message interface {
	Kind() string
}

// CatalogMessage replaces the worker's catalog.
type CatalogMessage struct {
	Type    string                   `json:"type"`
	Catalog map[string]catalog.Entry `json:"catalog"`
}

// Kind implements Message.
func (CatalogMessage) Kind() string { return KindCatalog }

// OptimizeMessage runs one search against the most recent catalog.
type OptimizeMessage struct {
	Type       string    `json:"type"`
	ID         string    `json:"id,omitempty"`
	Workshops  []float64 `json:"workshops"`
	Groove     int       `json:"groove"`
	MaxGroove  int       `json:"maxGroove"`
	MaxResults int       `json:"maxResults,omitempty"`
}

// Kind implements Message.
func (OptimizeMessage) Kind() string { return KindOptimize }

// Request converts the message to engine parameters.
func (m OptimizeMessage) Request() search.Request {
	return search.Request{
		Workshops: m.Workshops,
		Groove:    m.Groove,
		MaxGroove: m.MaxGroove,
		Limit:     m.MaxResults,
	}
}

func optimizeMessage(id string, req search.Request) OptimizeMessage {
	return OptimizeMessage{
		Type:       KindOptimize,
		ID:         id,
		Workshops:  append([]float64(nil), req.Workshops...),
		Groove:     req.Groove,
		MaxGroove:  req.MaxGroove,
		MaxResults: req.Limit,
	}
}

// Reply is an outbound worker message. Results is only set on optimized
// replies; an absent results field decodes as no results.
type Reply struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Results []search.Result `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Err keeps the original error for in-process callers.
	Err error `json:"-"`
}

func errorReply(kind, id string, err error) Reply {
	return Reply{Type: kind, ID: id, Error: err.Error(), Err: err}
}

// Failure returns the error carried by the reply, if any.
func (r Reply) Failure() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return nil
}

// DecodeMessage parses one JSON frame. Frames are dispatched on their "type"
// field.
func DecodeMessage(raw []byte) (Message, error) {
	typ := gjson.GetBytes(raw, "type")
	if typ.Type != gjson.String {
		return nil, fmt.Errorf("gateway: frame without type: %w", ErrUnknownMessage)
	}
	switch typ.String() {
	case KindCatalog:
		var m CatalogMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("gateway: decode catalog: %w", err)
		}
		return m, nil
	case KindOptimize:
		var m OptimizeMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("gateway: decode optimize: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("gateway: type %q: %w", typ.String(), ErrUnknownMessage)
}
