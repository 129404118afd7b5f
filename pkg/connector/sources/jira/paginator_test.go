package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helixdata/helix/pkg/connector/base"
	"github.com/helixdata/helix/pkg/errors"
)

func testSourceConfig(serverURL string, pageSize int) *sourceConfig {
	return &sourceConfig{
		Domain:         serverURL,
		AuthType:       authTypeBasic,
		Email:          "dev@example.com",
		APIToken:       "secret",
		PageSize:       pageSize,
		IssuesPageSize: pageSize,
	}
}

func newTestPaginator(server *httptest.Server, desc *StreamDescriptor, pageSize int) *paginator {
	cfg := testSourceConfig(server.URL, pageSize)
	return &paginator{
		client: NewClient(cfg, base.NoRetryPolicy(), 5*time.Second, zap.NewNop()),
		desc:   desc,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
}

func TestPaginator_WalksAllPagesAndTerminates(t *testing.T) {
	// 5 records at page size 2: three data pages then one empty page
	total := 5
	var requests []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)

		offset := 0
		if raw := r.URL.Query().Get("startAt"); raw != "" {
			var err error
			offset, err = strconv.Atoi(raw)
			require.NoError(t, err)
		}

		fmt.Fprint(w, `{"values":[`)
		for i := offset; i < offset+2 && i < total; i++ {
			if i > offset {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":%d}`, i)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	desc := &StreamDescriptor{Name: "screens", Path: "/screens", RecordsPath: "values", Flavor: flavorCore}
	pg := newTestPaginator(server, desc, 2)

	var seen []interface{}
	err := pg.run(context.Background(), Context{}, pg.baseParams(""), func(records []map[string]interface{}) error {
		for _, rec := range records {
			seen = append(seen, rec["id"])
		}
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, seen, total)
	require.Len(t, requests, 4)

	// First request carries no offset; later ones advance by page length
	first, err := url.ParseQuery(requests[0])
	require.NoError(t, err)
	assert.Empty(t, first.Get("startAt"))
	assert.Equal(t, "2", first.Get("maxResults"))

	for i, wantOffset := range []string{"2", "4", "5"} {
		q, err := url.ParseQuery(requests[i+1])
		require.NoError(t, err)
		assert.Equal(t, wantOffset, q.Get("startAt"))
	}
}

func TestPaginator_EmptyFirstPage(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		fmt.Fprint(w, `{"values":[]}`)
	}))
	defer server.Close()

	desc := &StreamDescriptor{Name: "dashboards", Path: "/dashboard", RecordsPath: "dashboards", Flavor: flavorCore}
	pg := newTestPaginator(server, desc, 50)

	emitted := false
	err := pg.run(context.Background(), Context{}, pg.baseParams(""), func([]map[string]interface{}) error {
		emitted = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, emitted)
	assert.Equal(t, 1, requestCount)
}

func TestPaginator_PagingDisabledIssuesOneRequest(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		// No startAt or maxResults for single-shot resources
		assert.Empty(t, r.URL.Query().Get("startAt"))
		assert.Empty(t, r.URL.Query().Get("maxResults"))
		fmt.Fprint(w, `[{"id":"1"},{"id":"2"},{"id":"3"}]`)
	}))
	defer server.Close()

	desc := &StreamDescriptor{Name: "priorities", Path: "/priority", Flavor: flavorCore, PagingDisabled: true}
	pg := newTestPaginator(server, desc, 2)

	var count int
	err := pg.run(context.Background(), Context{}, pg.baseParams(""), func(records []map[string]interface{}) error {
		count += len(records)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, requestCount)
}

func TestPaginator_BenignErrorYieldsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorMessages":["The board does not support sprints"]}`)
	}))
	defer server.Close()

	desc := &StreamDescriptor{
		Name:        "sprints",
		Path:        "/board/{board_id}/sprint",
		RecordsPath: "values",
		Flavor:      flavorAgile,
		BenignError: boardWithoutSprints,
	}
	pg := newTestPaginator(server, desc, 10)

	emitted := false
	err := pg.run(context.Background(), Context{"board_id": "3"}, pg.baseParams(""), func([]map[string]interface{}) error {
		emitted = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, emitted)
}

func TestPaginator_UnrecognizedBadRequestFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorMessages":["Field 'bogus' does not exist"]}`)
	}))
	defer server.Close()

	desc := &StreamDescriptor{
		Name:        "sprints",
		Path:        "/board/{board_id}/sprint",
		RecordsPath: "values",
		Flavor:      flavorAgile,
		BenignError: boardWithoutSprints,
	}
	pg := newTestPaginator(server, desc, 10)

	err := pg.run(context.Background(), Context{"board_id": "3"}, pg.baseParams(""), func([]map[string]interface{}) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestPaginator_AuthStatusesMapToTypedErrors(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorType
	}{
		{http.StatusUnauthorized, errors.ErrorTypeAuthentication},
		{http.StatusForbidden, errors.ErrorTypePermission},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			desc := &StreamDescriptor{Name: "users", Path: "/users/search", Flavor: flavorCore}
			pg := newTestPaginator(server, desc, 10)

			err := pg.run(context.Background(), Context{}, pg.baseParams(""), func([]map[string]interface{}) error {
				return nil
			})
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.want))
		})
	}
}

func TestPaginator_CancelledContextStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values":[{"id":1}]}`)
	}))
	defer server.Close()

	desc := &StreamDescriptor{Name: "screens", Path: "/screens", RecordsPath: "values", Flavor: flavorCore}
	pg := newTestPaginator(server, desc, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pg.run(ctx, Context{}, pg.baseParams(""), func([]map[string]interface{}) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
}
