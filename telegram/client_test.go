/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/wildcardbot/gatekeeper/httpclient"
	"github.com/wildcardbot/gatekeeper/testutil"
)

const testToken = "123456:TEST-token_value"

type apiCall struct {
	Method string
	Params map[string]interface{}
	UA     string
}

// fakeAPI is a minimal Bot API server. Replies are keyed by method name.
type fakeAPI struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []apiCall
	replies map[string]func(w http.ResponseWriter)
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{replies: map[string]func(w http.ResponseWriter){}}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	return api
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + testToken + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeAPIError(w, http.StatusUnauthorized, "Unauthorized", 0)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)

	body, _ := io.ReadAll(r.Body)
	params := map[string]interface{}{}
	_ = json.Unmarshal(body, &params)

	a.mu.Lock()
	a.calls = append(a.calls, apiCall{Method: method, Params: params, UA: r.Header.Get("User-Agent")})
	reply, ok := a.replies[method]
	a.mu.Unlock()

	if !ok {
		writeAPIError(w, http.StatusNotFound, "Not Found: method not found", 0)
		return
	}
	reply(w)
}

func (a *fakeAPI) setReply(method string, reply func(w http.ResponseWriter)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies[method] = reply
}

func (a *fakeAPI) Calls() []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]apiCall(nil), a.calls...)
}

func writeAPIResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}

func writeAPIError(w http.ResponseWriter, code int, description string, retryAfter int) {
	resp := map[string]interface{}{"ok": false, "error_code": code, "description": description}
	if retryAfter > 0 {
		resp["parameters"] = map[string]interface{}{"retry_after": retryAfter}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestConfig(apiURL string) *Config {
	cfg := NewDefaultConfig()
	cfg.Token = testToken
	cfg.APIURL = apiURL
	cfg.Client.RateLimits.PerSecond = 1000
	cfg.Client.Retries.InitialDelay = time.Millisecond
	return cfg
}

type ClientTestSuite struct {
	suite.Suite
	api    *fakeAPI
	client *Client
}

func TestClient(t *testing.T) {
	suite.Run(t, &ClientTestSuite{})
}

func (s *ClientTestSuite) SetupTest() {
	s.api = newFakeAPI()
	var err error
	s.client, err = NewClient(newTestConfig(s.api.URL), ClientOpts{})
	s.Require().NoError(err)
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.Close()
}

func (s *ClientTestSuite) TestGetMe() {
	s.api.setReply(MethodGetMe, func(w http.ResponseWriter) {
		writeAPIResult(w, User{ID: 42, IsBot: true, FirstName: "Wildcard", Username: "wildcard_bot"})
	})

	me, err := s.client.GetMe(context.Background())
	s.Require().NoError(err)
	s.Require().Equal(&User{ID: 42, IsBot: true, FirstName: "Wildcard", Username: "wildcard_bot"}, me)

	calls := s.api.Calls()
	s.Require().Len(calls, 1)
	s.Require().Equal(DefaultUserAgent, calls[0].UA)
}

func (s *ClientTestSuite) TestGetUpdates() {
	s.api.setReply(MethodGetUpdates, func(w http.ResponseWriter) {
		writeAPIResult(w, []Update{
			{UpdateID: 10, Message: &Message{MessageID: 1, From: &User{ID: 7}, Chat: Chat{ID: 7, Type: ChatTypePrivate}, Text: "/ping"}},
			{UpdateID: 11, CallbackQuery: &CallbackQuery{ID: "cb", From: User{ID: 8}, Data: "x"}},
		})
	})

	updates, err := s.client.GetUpdates(context.Background(), 10, 50, 25*time.Second)
	s.Require().NoError(err)
	s.Require().Len(updates, 2)
	s.Require().EqualValues(10, updates[0].UpdateID)
	s.Require().Equal("/ping", updates[0].Text())
	s.Require().Equal("cb", updates[1].CallbackQuery.ID)

	calls := s.api.Calls()
	s.Require().Len(calls, 1)
	s.Require().EqualValues(10, calls[0].Params["offset"])
	s.Require().EqualValues(50, calls[0].Params["limit"])
	s.Require().EqualValues(25, calls[0].Params["timeout"])
	s.Require().Equal([]interface{}{"message", "callback_query"}, calls[0].Params["allowed_updates"])
}

func (s *ClientTestSuite) TestSendMessage() {
	s.api.setReply(MethodSendMessage, func(w http.ResponseWriter) {
		writeAPIResult(w, Message{MessageID: 100, Chat: Chat{ID: 7, Type: ChatTypePrivate}, Text: "pong"})
	})

	msg, err := s.client.SendMessage(context.Background(), 7, "pong", &SendMessageOpts{ParseMode: "HTML"})
	s.Require().NoError(err)
	s.Require().EqualValues(100, msg.MessageID)

	calls := s.api.Calls()
	s.Require().Len(calls, 1)
	s.Require().EqualValues(7, calls[0].Params["chat_id"])
	s.Require().Equal("pong", calls[0].Params["text"])
	s.Require().Equal("HTML", calls[0].Params["parse_mode"])
}

func (s *ClientTestSuite) TestAnswerCallbackQuery() {
	s.api.setReply(MethodAnswerCallbackQuery, func(w http.ResponseWriter) {
		writeAPIResult(w, true)
	})

	s.Require().NoError(s.client.AnswerCallbackQuery(context.Background(), "cb-1", "done"))
	calls := s.api.Calls()
	s.Require().Len(calls, 1)
	s.Require().Equal("cb-1", calls[0].Params["callback_query_id"])
}

func (s *ClientTestSuite) TestAPIError() {
	s.api.setReply(MethodSendMessage, func(w http.ResponseWriter) {
		writeAPIError(w, http.StatusBadRequest, "Bad Request: chat not found", 0)
	})

	_, err := s.client.SendMessage(context.Background(), 1, "hi", nil)
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Require().Equal(http.StatusBadRequest, apiErr.Code)
	s.Require().Equal(MethodSendMessage, apiErr.Method)
	s.Require().Equal("Bad Request: chat not found", apiErr.Description)
	s.Require().False(errors.Is(err, ErrUnauthorized))
	s.Require().False(IsTooManyRequests(err))
}

func (s *ClientTestSuite) TestUnauthorized() {
	client, err := NewClient(&Config{Token: "1:wrong", APIURL: s.api.URL, Client: httpclient.NewDefaultConfig()}, ClientOpts{})
	s.Require().NoError(err)

	_, err = client.GetMe(context.Background())
	s.Require().ErrorIs(err, ErrUnauthorized)
}

func (s *ClientTestSuite) TestTooManyRequests() {
	cfg := newTestConfig(s.api.URL)
	cfg.Client.Retries.Enabled = false
	client, err := NewClient(cfg, ClientOpts{})
	s.Require().NoError(err)

	s.api.setReply(MethodSendMessage, func(w http.ResponseWriter) {
		writeAPIError(w, http.StatusTooManyRequests, "Too Many Requests: retry after 3", 3)
	})

	_, err = client.SendMessage(context.Background(), 1, "hi", nil)
	s.Require().True(IsTooManyRequests(err))
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Require().Equal(3*time.Second, apiErr.RetryAfter)
	s.Require().Contains(err.Error(), "retry after 3s")
}

func (s *ClientTestSuite) TestRetriesThrottledRequest() {
	var attempt int
	s.api.setReply(MethodSendMessage, func(w http.ResponseWriter) {
		attempt++
		if attempt == 1 {
			w.Header().Set("Retry-After", "0")
			writeAPIError(w, http.StatusTooManyRequests, "Too Many Requests: retry after 0", 0)
			return
		}
		writeAPIResult(w, Message{MessageID: 5})
	})

	msg, err := s.client.SendMessage(context.Background(), 1, "hi", nil)
	s.Require().NoError(err)
	s.Require().EqualValues(5, msg.MessageID)
	s.Require().Len(s.api.Calls(), 2)
}

func (s *ClientTestSuite) TestMalformedResponse() {
	s.api.setReply(MethodGetMe, func(w http.ResponseWriter) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := s.client.GetMe(context.Background())
	s.Require().Error(err)
	s.Require().Contains(err.Error(), "decode getMe response")
}

func TestClient_Metrics(t *testing.T) {
	api := newFakeAPI()
	defer api.Close()
	api.setReply(MethodGetMe, func(w http.ResponseWriter) {
		writeAPIResult(w, User{ID: 1})
	})

	collector := httpclient.NewPrometheusMetricsCollector("telegram_test")
	client, err := NewClient(newTestConfig(api.URL), ClientOpts{Collector: collector})
	require.NoError(t, err)

	_, err = client.GetMe(context.Background())
	require.NoError(t, err)
	testutil.RequireSamplesCountInHistogram(t,
		collector.Durations.WithLabelValues(MethodGetMe, "200").(prometheus.Histogram), 1)
}
