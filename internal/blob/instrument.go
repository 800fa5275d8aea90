package blob

import (
	"context"
	"io"
	"time"

	"tgdrive/internal/metrics"
)

type instrumentedStore struct {
	next    Store
	metrics *metrics.Metrics
}

// Instrument records call counts, durations and stored bytes for s.
func Instrument(s Store, m *metrics.Metrics) Store {
	return &instrumentedStore{next: s, metrics: m}
}

func (s *instrumentedStore) StoreBlob(ctx context.Context, destination string, r io.Reader, name string) (*StoredBlob, error) {
	start := time.Now()
	cr := &countingReader{r: r}
	stored, err := s.next.StoreBlob(ctx, destination, cr, name)
	s.metrics.ObserveBlobCall("store", err == nil, time.Since(start))
	if err == nil {
		s.metrics.BlobBytesStored.Add(float64(cr.n))
	}
	return stored, err
}

func (s *instrumentedStore) GetBlobLink(ctx context.Context, blobRef string) (string, error) {
	start := time.Now()
	link, err := s.next.GetBlobLink(ctx, blobRef)
	s.metrics.ObserveBlobCall("link", err == nil, time.Since(start))
	return link, err
}

func (s *instrumentedStore) GetBlobStream(ctx context.Context, blobRef string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := s.next.GetBlobStream(ctx, blobRef)
	s.metrics.ObserveBlobCall("stream", err == nil, time.Since(start))
	return rc, err
}

func (s *instrumentedStore) DeleteBlob(ctx context.Context, destination, messageRef string) bool {
	start := time.Now()
	ok := s.next.DeleteBlob(ctx, destination, messageRef)
	s.metrics.ObserveBlobCall("delete", ok, time.Since(start))
	return ok
}

func (s *instrumentedStore) ValidateCredential(ctx context.Context) bool {
	start := time.Now()
	ok := s.next.ValidateCredential(ctx)
	s.metrics.ObserveBlobCall("validate", ok, time.Since(start))
	return ok
}

func (s *instrumentedStore) SendProbe(ctx context.Context, destination string) bool {
	start := time.Now()
	ok := s.next.SendProbe(ctx, destination)
	s.metrics.ObserveBlobCall("probe", ok, time.Since(start))
	return ok
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
