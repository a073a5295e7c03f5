package report

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func TestSink_WriteRowsStdout(t *testing.T) {
	var out bytes.Buffer
	sink := NewSink(Location{Path: "-", Stdout: &out})

	require.NoError(t, sink.WriteRows(context.Background(), []Row{okRow(0, 100, 2)}))
	assert.Contains(t, out.String(), "0\t2.0\t2.0\t2.0\t2.0\t0.0\tok\t0\t100\n")
}

func TestSink_RoundTripThroughBucket(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	loc := Location{Path: "report.tsv.zst", Bucket: bucket}

	rows := []Row{okRow(0, 1, 1, 2, 3), failedRow("emfile", 0, 2)}
	require.NoError(t, NewSink(loc).WriteRows(context.Background(), rows))

	got, err := ReadRows(context.Background(), loc, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(rows, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSink_CancelledContextDoesNotCommit(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSink(Location{Path: "r.tsv", Bucket: bucket}).WriteRows(ctx, []Row{okRow(0, 1, 1)})
	assert.Error(t, err)

	ok, _ := bucket.Exists(context.Background(), "r.tsv")
	assert.False(t, ok)

	// A detached context still commits.
	require.NoError(t, NewSink(Location{Path: "r.tsv", Bucket: bucket}).WriteRows(context.WithoutCancel(ctx), []Row{okRow(0, 1, 1)}))
	ok, _ = bucket.Exists(context.Background(), "r.tsv")
	assert.True(t, ok)
}
