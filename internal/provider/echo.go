package provider

import (
	"context"
)

// Echo returns every segment's text unchanged. It is the canonical test
// double: the full pipeline can run against it without network access.
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Translate(_ context.Context, req Request) (map[string]string, error) {
	mapping := make(map[string]string, len(req.Segments))
	for _, seg := range req.Segments {
		mapping[seg.ID] = seg.Text
	}
	return mapping, nil
}
