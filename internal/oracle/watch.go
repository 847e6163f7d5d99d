package oracle

import (
	"context"
	"time"

	"feesuggest/internal/output"
)

// RecordWriter receives one record per successful poll; *output.Sink implements it.
type RecordWriter interface {
	Write(rec output.Record) error
}

// Watch polls SuggestFees immediately and then every interval until ctx is
// done. Failed polls are logged and skipped.
func (s *Service) Watch(ctx context.Context, interval time.Duration, newest string, sink RecordWriter) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.poll(ctx, newest, sink)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx, newest, sink)
		}
	}
}

func (s *Service) poll(ctx context.Context, newest string, sink RecordWriter) {
	res, err := s.SuggestFees(ctx, newest)
	if err != nil {
		// already logged by SuggestFees
		return
	}
	rec := output.Record{Time: time.Now().UTC(), Newest: s.newestOr(newest), Suggestions: res}
	if err := sink.Write(rec); err != nil {
		s.logger.Error("write watch record failed", "error", err)
	}
}
