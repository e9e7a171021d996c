package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birkin/collection-size-query-project/internal/testutil"
	"github.com/birkin/collection-size-query-project/pkg/bdr"
	"github.com/birkin/collection-size-query-project/pkg/client"
	"github.com/birkin/collection-size-query-project/pkg/scan"
)

func newScanner(t *testing.T, mock *testutil.MockRepo, cfg scan.Config) *scan.Scanner {
	t.Helper()

	api, err := client.New(client.Config{
		ServerRoot: mock.URL(),
		UserAgent:  "collection-size-query-test/1.0",
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)

	scanner, err := scan.New(bdr.NewClient(api), cfg)
	require.NoError(t, err)
	return scanner
}

func TestScan_EndToEnd(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()

	// Three pages of large collections with a few small ones mixed in.
	mock.AddCollections(10, 500)
	mock.AddCollection("bdr:small-1", "Early Maps", 10)
	mock.AddCollections(10, 500)
	mock.AddCollection("bdr:small-2", "Broadsides", 5)
	mock.AddCollection("bdr:small-3", "Pamphlets", 50)
	mock.AddCollection("bdr:small-4", "Postcards", 30)
	mock.AddCollections(10, 500)

	scanner := newScanner(t, mock, scan.Config{
		MinItems:     5,
		MaxItems:     50,
		BatchSize:    10,
		MaxCheck:     200,
		GatherTarget: 2,
		Delay:        time.Millisecond,
	})

	results, err := scanner.Run(context.Background())
	require.NoError(t, err)

	// Stops once matches exceed the gather target of 2.
	require.Len(t, results, 3)
	assert.Equal(t, "bdr:small-1", results[0].ID)
	assert.Equal(t, "bdr:small-2", results[1].ID)
	assert.Equal(t, "bdr:small-3", results[2].ID)
	assert.Equal(t, "bdr:small-1 ('Early Maps') has 10 items", results[0].String())

	// bdr:small-4 is never examined: the scan stopped at the third match.
	assert.Equal(t, 23, mock.GetSearchRequests())
}

func TestScan_CheckLimitAcrossPages(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.AddCollections(50, 500) // nothing matches

	scanner := newScanner(t, mock, scan.Config{
		MinItems:     5,
		MaxItems:     50,
		BatchSize:    10,
		MaxCheck:     25,
		GatherTarget: 2,
		Delay:        0,
	})

	results, err := scanner.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, 25, mock.GetSearchRequests())
}

func TestScan_ListingExhaustion(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.AddCollections(7, 500)
	mock.AddCollection("bdr:small", "Small", 6)

	scanner := newScanner(t, mock, scan.Config{
		MinItems:     5,
		MaxItems:     50,
		BatchSize:    10,
		MaxCheck:     200,
		GatherTarget: 2,
		Delay:        0,
	})

	results, err := scanner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "bdr:small", results[0].ID)
	assert.Equal(t, 8, mock.GetSearchRequests())
}

func TestScan_MissingCountWarnsAndContinues(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.AddCollection("bdr:odd", "No Count", 10)
	mock.OmitCount("bdr:odd")
	mock.AddCollection("bdr:small", "Small", 10)

	scanner := newScanner(t, mock, scan.Config{
		MinItems:     5,
		MaxItems:     50,
		BatchSize:    10,
		MaxCheck:     200,
		GatherTarget: 2,
		Delay:        0,
	})

	results, err := scanner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "bdr:small", results[0].ID)
}
