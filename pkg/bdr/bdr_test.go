package bdr

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/birkin/collection-size-query-project/internal/testutil"
	"github.com/birkin/collection-size-query-project/pkg/client"
)

func newTestClient(t *testing.T, mock *testutil.MockRepo) *Client {
	t.Helper()

	api, err := client.New(client.Config{ServerRoot: mock.URL()})
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}
	return NewClient(api)
}

func TestFetchCollectionsBatch_Paging(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.AddCollections(5, 10)

	c := newTestClient(t, mock)
	ctx := context.Background()

	first, err := c.FetchCollectionsBatch(ctx, 0, 3)
	if err != nil {
		t.Fatalf("FetchCollectionsBatch failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("First page has %d entries, want 3", len(first))
	}
	if first[0].ID != "test:0001" {
		t.Errorf("First entry ID = %q", first[0].ID)
	}
	if first[0].Name == "" {
		t.Error("First entry Name should be populated")
	}

	second, err := c.FetchCollectionsBatch(ctx, 3, 3)
	if err != nil {
		t.Fatalf("FetchCollectionsBatch failed: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("Second page has %d entries, want 2", len(second))
	}

	third, err := c.FetchCollectionsBatch(ctx, 6, 3)
	if err != nil {
		t.Fatalf("FetchCollectionsBatch failed: %v", err)
	}
	if len(third) != 0 {
		t.Errorf("Past-the-end page has %d entries, want 0", len(third))
	}
}

func TestFetchCollectionsBatch_PropagatesHTTPError(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.SetHandler(CollectionsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(t, mock)

	_, err := c.FetchCollectionsBatch(context.Background(), 0, 100)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *client.APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
}

func TestFetchCollectionItemCount(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.AddCollection("bdr:42", "Test Collection", 17)

	c := newTestClient(t, mock)

	count, found, err := c.FetchCollectionItemCount(context.Background(), "bdr:42")
	if err != nil {
		t.Fatalf("FetchCollectionItemCount failed: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if count != 17 {
		t.Errorf("count = %d, want 17", count)
	}

	want := `rel_is_member_of_collection_ssim:"bdr:42"`
	if mock.LastSearchQuery != want {
		t.Errorf("Search query = %q, want %q", mock.LastSearchQuery, want)
	}
}

func TestFetchCollectionItemCount_MissingCount(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.AddCollection("bdr:42", "Test Collection", 17)
	mock.OmitCount("bdr:42")

	c := newTestClient(t, mock)

	count, found, err := c.FetchCollectionItemCount(context.Background(), "bdr:42")
	if err != nil {
		t.Fatalf("FetchCollectionItemCount failed: %v", err)
	}
	if found {
		t.Errorf("found = true (count %d), want false for missing numFound", count)
	}
}

func TestFetchCollectionItemCount_ZeroIsFound(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.AddCollection("bdr:empty", "Empty Collection", 0)

	c := newTestClient(t, mock)

	count, found, err := c.FetchCollectionItemCount(context.Background(), "bdr:empty")
	if err != nil {
		t.Fatalf("FetchCollectionItemCount failed: %v", err)
	}
	if !found {
		t.Fatal("A present numFound of 0 must be reported as found")
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestFetchCollectionItemCount_PropagatesHTTPError(t *testing.T) {
	mock := testutil.NewMockRepo()
	defer mock.Close()
	mock.SetHandler(SearchEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	c := newTestClient(t, mock)

	_, _, err := c.FetchCollectionItemCount(context.Background(), "bdr:42")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *client.APIError, got %T: %v", err, err)
	}
	if apiErr.ErrorClass != client.ErrorClassClient {
		t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, client.ErrorClassClient)
	}
}

func TestCollectionInfo_String(t *testing.T) {
	info := CollectionInfo{ID: "bdr:42", Name: "Maps", Count: 10}

	want := "bdr:42 ('Maps') has 10 items"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
