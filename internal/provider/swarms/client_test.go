package swarms_test

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

	"github.com/stretchr/testify/require"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/provider/swarms"
)

const testSecret = "sk-secret"

var errBoom = errors.New("connection reset by peer")

type reply struct {
	status int
	body   string
}

// fakeAPI serves scripted replies per endpoint. Once a script runs out the last reply repeats.
type fakeAPI struct {
	mu sync.Mutex

	users       []reply
	apiKeys     []reply
	agents      []reply
	completions []reply

	userCalls       int
	apiKeyCalls     int
	agentCalls      int
	completionCalls int

	agentKeys   []string
	lastPath    string
	lastHeaders http.Header
	lastBody    map[string]interface{}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)
	f.lastPath = r.URL.Path
	f.lastHeaders = r.Header.Clone()
	f.lastBody = body

	var script []reply
	var calls *int
	switch {
	case r.URL.Path == "/v1/users":
		script, calls = f.users, &f.userCalls
	case strings.HasSuffix(r.URL.Path, "/api-keys"):
		script, calls = f.apiKeys, &f.apiKeyCalls
	case r.URL.Path == "/v1/agent":
		f.agentKeys = append(f.agentKeys, r.Header.Get("api-key"))
		script, calls = f.agents, &f.agentCalls
	case r.URL.Path == "/v1/agent/completions":
		script, calls = f.completions, &f.completionCalls
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	idx := *calls
	*calls++
	if idx >= len(script) {
		idx = len(script) - 1
	}
	resp := script[idx]

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func newServer(t *testing.T, api *fakeAPI) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newClient(t *testing.T, baseURL string, opts ...swarms.Option) *swarms.Client {
	t.Helper()
	client, err := swarms.NewClient(swarms.Config{
		OpenAIAPIKey: testSecret,
		BaseURL:      baseURL,
		Timeout:      5,
	}, opts...)
	require.NoError(t, err)
	return client
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func TestNewClient_MissingSecret(t *testing.T) {
	configs := []swarms.Config{
		{},
		{OpenAIAPIKey: "   "},
		{BaseURL: "https://example.test/v1", Timeout: 10},
		{AgentMaxAttempts: 5, CompletionMaxRetries: 1, CompletionRetryDelay: time.Second},
	}

	for _, cfg := range configs {
		client, err := swarms.NewClient(cfg)

		require.ErrorIs(t, err, domain.ErrConfiguration)
		require.Nil(t, client)
	}
}

func TestNewClient_SeedsCredentialWithSecret(t *testing.T) {
	client := newClient(t, "https://example.test/v1")

	require.Equal(t, "swarms", client.Name())
	require.Equal(t, testSecret, client.Credentials().APIKey)
	require.Empty(t, client.Credentials().UserID)
}

func TestCreateUser_InstallsCredentials(t *testing.T) {
	api := &fakeAPI{users: []reply{{http.StatusOK, `{"api_key":"key-1","user_id":"u-1"}`}}}
	srv := newServer(t, api)
	client := newClient(t, srv.URL+"/v1")

	user, err := client.CreateUser(context.Background(), "swarms_user_1234")

	require.NoError(t, err)
	require.Equal(t, "key-1", user.APIKey)
	require.Equal(t, "u-1", user.UserID)
	require.Equal(t, domain.Credentials{UserID: "u-1", APIKey: "key-1"}, client.Credentials())
	require.Equal(t, "/v1/users", api.lastPath)
	require.Equal(t, "swarms_user_1234", api.lastBody["username"])
	require.Empty(t, api.lastHeaders.Get("api-key"))
}

func TestCreateUser_Failures(t *testing.T) {
	tests := []struct {
		name     string
		reply    reply
		expected error
	}{
		{
			name:     "non-2xx status",
			reply:    reply{http.StatusInternalServerError, `{"detail":"boom"}`},
			expected: &domain.StatusError{},
		},
		{
			name:     "empty body",
			reply:    reply{http.StatusOK, ``},
			expected: domain.ErrEmptyResponse,
		},
		{
			name:     "non-JSON body",
			reply:    reply{http.StatusOK, `<html>oops</html>`},
			expected: domain.ErrInvalidJSON,
		},
		{
			name:     "missing api key",
			reply:    reply{http.StatusOK, `{"user_id":"u-1"}`},
			expected: domain.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, &fakeAPI{users: []reply{tt.reply}})
			client := newClient(t, srv.URL+"/v1")

			user, err := client.CreateUser(context.Background(), "someone")

			require.Nil(t, user)
			require.ErrorIs(t, err, domain.ErrUserCreation)
			var statusErr *domain.StatusError
			if errors.As(tt.expected, &statusErr) {
				require.ErrorAs(t, err, &statusErr)
			} else {
				require.ErrorIs(t, err, tt.expected)
			}
			require.Equal(t, testSecret, client.Credentials().APIKey)
		})
	}
}

func TestCreateUser_EmptyUsername(t *testing.T) {
	client := newClient(t, "https://example.test/v1")

	_, err := client.CreateUser(context.Background(), "")

	require.ErrorIs(t, err, domain.ErrUserCreation)
}

func TestCreateAPIKey(t *testing.T) {
	t.Run("authenticates with the held key and leaves it unchanged", func(t *testing.T) {
		api := &fakeAPI{
			users:   []reply{{http.StatusOK, `{"api_key":"key-1","user_id":"u-1"}`}},
			apiKeys: []reply{{http.StatusOK, `{"key":"key-2","name":"new_api_key"}`}},
		}
		srv := newServer(t, api)
		client := newClient(t, srv.URL+"/v1")
		ctx := context.Background()

		_, err := client.CreateUser(ctx, "someone")
		require.NoError(t, err)

		key, err := client.CreateAPIKey(ctx, "u-1")

		require.NoError(t, err)
		require.Equal(t, "key-2", key.Key)
		require.Equal(t, "/v1/users/u-1/api-keys", api.lastPath)
		require.Equal(t, "key-1", api.lastHeaders.Get("api-key"))
		require.Equal(t, "new_api_key", api.lastBody["name"])
		require.Equal(t, "key-1", client.Credentials().APIKey)

		require.NoError(t, client.RotateAPIKey(key.Key))
		require.Equal(t, domain.Credentials{UserID: "u-1", APIKey: "key-2"}, client.Credentials())
	})

	t.Run("surfaces rejection without retry", func(t *testing.T) {
		api := &fakeAPI{apiKeys: []reply{{http.StatusForbidden, `{"detail":"forbidden"}`}}}
		srv := newServer(t, api)
		client := newClient(t, srv.URL+"/v1")

		key, err := client.CreateAPIKey(context.Background(), "u-1")

		require.Nil(t, key)
		require.ErrorIs(t, err, domain.ErrAPIKeyCreation)
		require.Equal(t, 1, api.apiKeyCalls)
	})

	t.Run("rejects empty user id", func(t *testing.T) {
		client := newClient(t, "https://example.test/v1")

		_, err := client.CreateAPIKey(context.Background(), " ")

		require.ErrorIs(t, err, domain.ErrAPIKeyCreation)
	})
}

func TestCreateAgent_Success(t *testing.T) {
	api := &fakeAPI{agents: []reply{{http.StatusOK, `{"agent_id":"a-1","agent_name":"Agent_x"}`}}}
	srv := newServer(t, api)
	client := newClient(t, srv.URL+"/v1")

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{
		Name:         "Agent_x",
		SystemPrompt: "You answer geography questions.",
		ModelName:    "gpt-4",
		Temperature:  0.7,
	})

	require.NoError(t, err)
	require.Equal(t, "a-1", agent.ID)
	require.Equal(t, "Agent_x", agent.Name)
	require.Equal(t, testSecret, api.lastHeaders.Get("api-key"))

	require.Equal(t, "Agent_x", api.lastBody["agent_name"])
	require.Equal(t, "gpt-4", api.lastBody["model_name"])
	require.Equal(t, "You answer geography questions.", api.lastBody["system_prompt"])
	require.InDelta(t, 0.7, api.lastBody["temperature"], 0.0001)
	require.Equal(t, "API-created agent", api.lastBody["description"])
	require.InDelta(t, 1, api.lastBody["max_loops"], 0)
	require.InDelta(t, 200000, api.lastBody["context_length"], 0)
	require.Equal(t, false, api.lastBody["streaming_on"])
	require.Equal(t, []interface{}{"api_created"}, api.lastBody["tags"])
}

func TestCreateAgent_ReprovisionsOnUnauthorized(t *testing.T) {
	api := &fakeAPI{
		users: []reply{
			{http.StatusOK, `{"api_key":"key-1","user_id":"u-1"}`},
			{http.StatusOK, `{"api_key":"key-2","user_id":"u-2"}`},
		},
		agents: []reply{
			{http.StatusUnauthorized, `{"detail":"Invalid API key"}`},
			{http.StatusUnauthorized, `{"detail":"Invalid API key"}`},
			{http.StatusOK, `{"agent_id":"a-1"}`},
		},
	}
	srv := newServer(t, api)

	var usernames []string
	client := newClient(t, srv.URL+"/v1", swarms.WithUsernameGenerator(func() string {
		name := "user_" + string(rune('0'+len(usernames)))
		usernames = append(usernames, name)
		return name
	}))

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.NoError(t, err)
	require.Equal(t, "a-1", agent.ID)
	require.Equal(t, 3, api.agentCalls)
	require.Equal(t, 2, api.userCalls)
	require.Len(t, usernames, 2)
	require.Equal(t, []string{testSecret, "key-1", "key-2"}, api.agentKeys)
	require.Equal(t, domain.Credentials{UserID: "u-2", APIKey: "key-2"}, client.Credentials())
}

func TestCreateAgent_CredentialExhausted(t *testing.T) {
	api := &fakeAPI{
		users:  []reply{{http.StatusOK, `{"api_key":"key-n","user_id":"u-n"}`}},
		agents: []reply{{http.StatusUnauthorized, `{"detail":"Invalid API key"}`}},
	}
	srv := newServer(t, api)
	client := newClient(t, srv.URL+"/v1")

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.Nil(t, agent)
	require.ErrorIs(t, err, domain.ErrAgentCreation)
	require.ErrorIs(t, err, domain.ErrCredentialExhausted)
	require.Equal(t, 3, api.agentCalls)
	require.Equal(t, 2, api.userCalls)
	for _, key := range api.agentKeys {
		require.NotEmpty(t, key)
	}
}

func TestCreateAgent_UnauthorizedWithoutBody(t *testing.T) {
	api := &fakeAPI{
		users: []reply{{http.StatusOK, `{"api_key":"key-1","user_id":"u-1"}`}},
		agents: []reply{
			{http.StatusUnauthorized, ``},
			{http.StatusCreated, `{"agent_id":"a-1"}`},
		},
	}
	srv := newServer(t, api)
	client := newClient(t, srv.URL+"/v1")

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.NoError(t, err)
	require.Equal(t, "a-1", agent.ID)
	require.Equal(t, 1, api.userCalls)
}

func TestCreateAgent_MalformedResponseIsNotRetried(t *testing.T) {
	api := &fakeAPI{agents: []reply{{http.StatusOK, `{"status":"ok"}`}}}
	srv := newServer(t, api)
	client := newClient(t, srv.URL+"/v1")

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.Nil(t, agent)
	require.ErrorIs(t, err, domain.ErrAgentCreation)
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
	require.Equal(t, 1, api.agentCalls)
	require.Equal(t, 0, api.userCalls)
}

func TestCreateAgent_ProtocolErrorsAreRetried(t *testing.T) {
	api := &fakeAPI{agents: []reply{
		{http.StatusBadGateway, `bad gateway`},
		{http.StatusOK, `not json`},
		{http.StatusOK, `{"agent_id":"a-3"}`},
	}}
	srv := newServer(t, api)
	client := newClient(t, srv.URL+"/v1")

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.NoError(t, err)
	require.Equal(t, "a-3", agent.ID)
	require.Equal(t, 3, api.agentCalls)
}

func TestCreateAgent_ErrorStatusWithBodyIsRetried(t *testing.T) {
	api := &fakeAPI{agents: []reply{{http.StatusInternalServerError, `{"detail":"agent store unavailable"}`}}}
	srv := newServer(t, api)
	client := newClient(t, srv.URL+"/v1")

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.Nil(t, agent)
	require.ErrorIs(t, err, domain.ErrAgentCreation)
	require.NotErrorIs(t, err, domain.ErrMalformedResponse)

	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, 3, api.agentCalls)
	require.Zero(t, api.userCalls)
}

func TestCreateAgent_TransportErrorOnFinalAttemptPropagates(t *testing.T) {
	calls := 0
	hc := &http.Client{Transport: roundTripFunc(func(_ *http.Request) (*http.Response, error) {
		calls++
		return nil, errBoom
	})}
	client := newClient(t, "https://example.test/v1", swarms.WithHTTPClient(hc))

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.Nil(t, agent)
	require.ErrorIs(t, err, domain.ErrAgentCreation)
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, 3, calls)
}

func TestCreateAgent_RecoversFromTransientTransportError(t *testing.T) {
	calls := 0
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, errBoom
		}
		return jsonResponse(r, http.StatusOK, `{"agent_id":"a-2"}`), nil
	})}
	client := newClient(t, "https://example.test/v1", swarms.WithHTTPClient(hc))

	agent, err := client.CreateAgent(context.Background(), domain.AgentSpec{Name: "Agent_x"})

	require.NoError(t, err)
	require.Equal(t, "a-2", agent.ID)
	require.Equal(t, 2, calls)
}

func TestCreateAgent_EmptyName(t *testing.T) {
	client := newClient(t, "https://example.test/v1")

	_, err := client.CreateAgent(context.Background(), domain.AgentSpec{})

	require.ErrorIs(t, err, domain.ErrAgentCreation)
}
