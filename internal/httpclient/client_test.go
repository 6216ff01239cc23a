package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akimovaa/go-storefront-auth/internal/auth"
	"github.com/akimovaa/go-storefront-auth/internal/models"
	"github.com/akimovaa/go-storefront-auth/internal/tokens"
)

// testBackend — сервер, совмещающий эндпоинт обмена и защищённый маршрут.
type testBackend struct {
	srv *httptest.Server

	refreshCalls int
	refreshFails bool

	apiCalls   int
	authSeen   []string
	ctSeen     []string
	reqIDSeen  []string
	apiHandler http.HandlerFunc
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	b := &testBackend{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/token", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls++
		if b.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"accessToken":"fresh-at","refreshToken":"fresh-rt"}}`)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		b.apiCalls++
		b.authSeen = append(b.authSeen, r.Header.Get("Authorization"))
		b.ctSeen = append(b.ctSeen, r.Header.Get("Content-Type"))
		b.reqIDSeen = append(b.reqIDSeen, r.Header.Get("X-Request-Id"))
		if b.apiHandler != nil {
			b.apiHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)

	return b
}

func newTestClient(t *testing.T, b *testBackend) (*Client, tokens.Store) {
	t.Helper()

	st := tokens.NewMemory()
	mgr := auth.New(st, auth.Config{
		BaseURL:     b.srv.URL,
		RefreshPath: "/api/auth/token",
	})

	return New(Config{BaseURL: b.srv.URL, Auth: mgr}), st
}

func seed(t *testing.T, st tokens.Store, access, refresh string) {
	t.Helper()
	require.NoError(t, st.SetPair(context.Background(), models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}))
}

func TestDo_AttachesBearerAndRequestID(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	c, st := newTestClient(t, b)
	seed(t, st, "at-1", "rt-1")

	resp, err := c.Get(context.Background(), "/api/profile")
	require.NoError(t, err)
	require.True(t, resp.OK())

	require.Equal(t, 1, b.apiCalls)
	require.Equal(t, "Bearer at-1", b.authSeen[0])
	require.NotEmpty(t, b.reqIDSeen[0])
}

func TestDo_NoTokenMeansNoAuthorization(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	c, _ := newTestClient(t, b)

	_, err := c.Get(context.Background(), "/api/products")
	require.NoError(t, err)
	require.Empty(t, b.authSeen[0])
}

func TestDo_Unauthorized_RefreshAndRetryOnce(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	b.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		// Старый токен отвергается, свежий принимается.
		if r.Header.Get("Authorization") == "Bearer fresh-at" {
			fmt.Fprint(w, `{"ok":true}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}

	c, st := newTestClient(t, b)
	seed(t, st, "stale-at", "rt-1")

	resp, err := c.Get(context.Background(), "/api/orders")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Ровно один повтор: исходный вызов + повтор с новым токеном.
	require.Equal(t, 2, b.apiCalls)
	require.Equal(t, 1, b.refreshCalls)
	require.Equal(t, "Bearer stale-at", b.authSeen[0])
	require.Equal(t, "Bearer fresh-at", b.authSeen[1])
}

func TestDo_Unauthorized_SecondResponseReturnedAsIs(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	b.apiHandler = func(w http.ResponseWriter, _ *http.Request) {
		// 401 и после обмена: возвращается как есть, без новых повторов.
		w.WriteHeader(http.StatusUnauthorized)
	}

	c, st := newTestClient(t, b)
	seed(t, st, "stale-at", "rt-1")

	resp, err := c.Get(context.Background(), "/api/orders")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 2, b.apiCalls, "no retry loops")
	require.Equal(t, 1, b.refreshCalls)
}

func TestDo_Unauthorized_RefreshFails_NoRetry(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	b.refreshFails = true
	b.apiHandler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	c, st := newTestClient(t, b)
	seed(t, st, "stale-at", "rt-1")

	_, err := c.Get(context.Background(), "/api/orders")
	require.ErrorIs(t, err, ErrUnauthenticated)

	require.Equal(t, 1, b.apiCalls, "original request must not be reissued")

	_, ok, storeErr := st.Pair(context.Background())
	require.NoError(t, storeErr)
	require.False(t, ok, "pair must be cleared by failed refresh")
}

func TestDo_OtherStatusesPassThrough(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusInternalServerError} {
		status := status
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			t.Parallel()

			b := newTestBackend(t)
			b.apiHandler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				fmt.Fprint(w, `{"message":"domain failure"}`)
			}

			c, st := newTestClient(t, b)
			seed(t, st, "at-1", "rt-1")

			resp, err := c.Get(context.Background(), "/api/reviews")
			require.NoError(t, err, "business errors are values, not errors")
			require.Equal(t, status, resp.StatusCode)
			require.Equal(t, "domain failure", resp.Message())
			require.Equal(t, 0, b.refreshCalls)
		})
	}
}

func TestDo_HeaderBuildOrder(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	c, st := newTestClient(t, b)
	seed(t, st, "at-1", "rt-1")

	t.Run("json body sets content type", func(t *testing.T) {
		_, err := c.Post(context.Background(), "/api/reviews", WithJSON(map[string]string{"text": "ok"}))
		require.NoError(t, err)
		require.Equal(t, "application/json", b.ctSeen[len(b.ctSeen)-1])
	})

	t.Run("raw body with empty content type omits header", func(t *testing.T) {
		_, err := c.Post(context.Background(), "/api/claims/upload", WithBody([]byte("binary"), ""))
		require.NoError(t, err)
		require.Empty(t, b.ctSeen[len(b.ctSeen)-1])
	})

	t.Run("caller header wins on conflict", func(t *testing.T) {
		_, err := c.Post(context.Background(), "/api/reviews",
			WithJSON(map[string]string{}),
			WithHeader("Authorization", "Bearer caller-token"),
			WithHeader("Content-Type", "application/vnd.custom+json"),
		)
		require.NoError(t, err)
		require.Equal(t, "Bearer caller-token", b.authSeen[len(b.authSeen)-1])
		require.Equal(t, "application/vnd.custom+json", b.ctSeen[len(b.ctSeen)-1])
	})
}

func TestDo_WithoutAuth(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	b.apiHandler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	c, st := newTestClient(t, b)
	seed(t, st, "at-1", "rt-1")

	resp, err := c.Post(context.Background(), "/api/find/password", WithoutAuth())
	require.NoError(t, err)

	// Анонимный маршрут: без bearer и без попытки обмена на 401.
	require.Empty(t, b.authSeen[0])
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 0, b.refreshCalls)
}

func TestDo_WithQuery(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	b.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2", r.URL.Query().Get("page"))
		w.WriteHeader(http.StatusOK)
	}

	c, st := newTestClient(t, b)
	seed(t, st, "at-1", "rt-1")

	_, err := c.Get(context.Background(), "/api/orders", WithQuery("page", "2"))
	require.NoError(t, err)
}

func TestResponse_Message(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"flat message", `{"message":"wrong code"}`, "wrong code"},
		{"nested message", `{"error":{"message":"expired"}}`, "expired"},
		{"plain text", `verification failed`, "verification failed"},
		{"empty body", ``, genericFailureMessage},
		{"json without message", `{"success":false}`, genericFailureMessage},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := &Response{StatusCode: http.StatusBadRequest, Body: []byte(tc.body)}
			require.Equal(t, tc.want, r.Message())
		})
	}
}
