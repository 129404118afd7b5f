package jira

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/helixdata/helix/pkg/errors"
	"github.com/helixdata/helix/pkg/metrics"
	"go.uber.org/zap"
)

// urlParamsFunc builds stream-specific query parameters. The bookmark is the
// stream's committed replication floor, empty when no prior state exists.
type urlParamsFunc func(cfg *sourceConfig, bookmark string) url.Values

// paginator drives offset pagination for one stream within one context. The
// page token is a pointer so "no token yet" (first request, no startAt
// parameter) stays distinct from "offset zero".
type paginator struct {
	client   *Client
	desc     *StreamDescriptor
	cfg      *sourceConfig
	throttle func(context.Context) error
	guard    func(fn func() error) error
	logger   *zap.Logger
}

// emitFunc consumes one page of normalized-shape raw records.
type emitFunc func(records []map[string]interface{}) error

// run fetches pages until exhaustion, handing each to emit. The next offset
// is always previous offset plus the page's record count, so a short page
// still advances correctly and an empty page terminates the walk.
func (p *paginator) run(ctx context.Context, streamCtx Context, params url.Values, emit emitFunc) error {
	path, err := bindPath(p.desc.Path, streamCtx)
	if err != nil {
		return err
	}

	var token *int
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeTimeout, "extraction cancelled")
		}
		if p.throttle != nil {
			if err := p.throttle(ctx); err != nil {
				return err
			}
		}

		reqParams := cloneValues(params)
		if token != nil {
			reqParams.Set("startAt", strconv.Itoa(*token))
		}

		var (
			status int
			body   []byte
		)
		call := func() error {
			var err error
			status, body, err = p.client.Do(ctx, p.desc.Flavor, path, reqParams)
			return err
		}

		timer := metrics.NewTimer()
		var err error
		if p.guard != nil {
			err = p.guard(call)
		} else {
			err = call()
		}
		metrics.RequestDuration.WithLabelValues("jira", p.desc.Name).Observe(timer.Stop().Seconds())
		if err != nil {
			return err
		}

		if status < 200 || status >= 300 {
			if p.desc.BenignError != nil && p.desc.BenignError(status, body) {
				p.logger.Debug("benign error response, stream yields no data",
					zap.String("stream", p.desc.Name),
					zap.String("path", path),
					zap.Int("status", status))
				metrics.SuppressedFailures.WithLabelValues("jira", p.desc.Name, "benign_response").Inc()
				return nil
			}
			errType := errors.ErrorTypeData
			switch status {
			case http.StatusUnauthorized:
				errType = errors.ErrorTypeAuthentication
			case http.StatusForbidden:
				errType = errors.ErrorTypePermission
			}
			return errors.Newf(errType, "unexpected status %d from %s", status, path).
				WithDetail("body", truncateBody(body))
		}

		records, err := extractRecords(body, p.desc.RecordsPath)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to parse page for stream "+p.desc.Name)
		}
		metrics.PagesFetched.WithLabelValues("jira", p.desc.Name).Inc()

		if len(records) == 0 {
			return nil
		}
		if err := emit(records); err != nil {
			return err
		}
		if p.desc.PagingDisabled {
			return nil
		}

		next := len(records)
		if token != nil {
			next += *token
		}
		token = &next
	}
}

// baseParams returns the default query parameters for a stream: the page
// size for paginated streams, nothing for single-shot ones.
func (p *paginator) baseParams(bookmark string) url.Values {
	if p.desc.URLParams != nil {
		return p.desc.URLParams(p.cfg, bookmark)
	}
	params := url.Values{}
	if !p.desc.PagingDisabled {
		params.Set("maxResults", strconv.Itoa(p.cfg.PageSize))
	}
	return params
}

func cloneValues(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
