package cart

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/ev-storefront/internal/cart/events"
	"github.com/magabrotheeeer/ev-storefront/internal/kvstore"
	"github.com/magabrotheeeer/ev-storefront/internal/models"
	"github.com/magabrotheeeer/ev-storefront/internal/session"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type fixture struct {
	client   *Client
	bus      *events.Bus
	kv       *kvstore.Memory
	sessions *session.Store
	guest    *session.Guest
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := newNoopLogger()
	kv := kvstore.NewMemory()
	sessions := session.NewStore(kv, "visitor:1:", log)
	guest := session.NewGuest(kv, "visitor:1:", log)
	bus := events.NewBus()

	client := NewClient(log, srv.Client(), srv.URL, "visitor-1",
		sessions, guest, bus, kv, "visitor:1:")
	return &fixture{client: client, bus: bus, kv: kv, sessions: sessions, guest: guest}
}

func writeOK(w http.ResponseWriter, data any, sessionID string) {
	resp := map[string]any{"status": "OK"}
	if data != nil {
		resp["data"] = data
	}
	if sessionID != "" {
		resp["session_id"] = sessionID
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, msg string) {
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "Error", "error": msg})
}

func activeSession() models.Session {
	return models.Session{
		User:      models.UserRecord{ID: "u-1", Email: "ivan@example.com", Name: "Ivan", Role: "customer"},
		Token:     "user-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestFetch_NormalizesItems(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/cart", r.URL.Path)
		writeOK(w, []map[string]any{
			{
				// цена строкой, total отсутствует, снимок размазан по верхнему уровню
				"id":         17,
				"product_id": "42",
				"quantity":   "2",
				"price":      "1000",
				"name":       "Volt GT",
				"model":      "GT",
			},
			{
				// отрицательная цена и нулевое количество
				"id":         "18",
				"product_id": 43,
				"quantity":   0,
				"price":      -500,
				"total":      nil,
				"product":    map[string]any{"name": "City EV", "image": "/img/city.png"},
			},
		}, "")
	}))

	items := f.client.Fetch(context.Background())
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "17", first.ID)
	assert.Equal(t, "42", first.ProductID)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, 1000.0, first.Price)
	assert.Equal(t, 2000.0, first.Total, "missing total is recomputed as price*quantity")
	assert.Equal(t, "Volt GT", first.Product.Name)
	assert.Equal(t, PlaceholderImage, first.Product.Image)

	second := items[1]
	assert.Equal(t, 1, second.Quantity, "zero quantity is clamped to 1")
	assert.Equal(t, 0.0, second.Price, "negative price is clamped to 0")
	assert.Equal(t, 0.0, second.Total)
	assert.Equal(t, "City EV", second.Product.Name)
	assert.Equal(t, "/img/city.png", second.Product.Image)
}

func TestFetch_CachesSnapshot(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, []map[string]any{{"id": 1, "product_id": 42, "quantity": 1, "price": 10}}, "")
	}))

	_ = f.client.Fetch(context.Background())

	var cached []models.CartItem
	found, err := f.kv.Get(context.Background(), "visitor:1:"+session.KeyCartItems, &cached)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, cached, 1)
}

func TestFetch_TransportFailureReturnsEmpty(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	items := f.client.Fetch(context.Background())
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFetch_MalformedPayloadReturnsEmpty(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, map[string]any{"not": "an array"}, "")
	}))

	items := f.client.Fetch(context.Background())
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFetch_GuestSendsSessionHeader(t *testing.T) {
	var gotAuth, gotGuest string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotGuest = r.Header.Get("X-Session-ID")
		writeOK(w, []map[string]any{}, "")
	}))

	_ = f.client.Fetch(context.Background())

	assert.Empty(t, gotAuth)
	assert.NotEmpty(t, gotGuest, "guest identity is provisioned lazily on first cart operation")

	id, ok := f.guest.Existing(context.Background())
	require.True(t, ok)
	assert.Equal(t, id, gotGuest)
}

func TestFetch_AuthenticatedSendsBearer(t *testing.T) {
	var gotAuth string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeOK(w, []map[string]any{}, "")
	}))
	require.NoError(t, f.sessions.Write(context.Background(), activeSession()))

	_ = f.client.Fetch(context.Background())

	assert.Equal(t, "Bearer user-token", gotAuth)
}

func TestAdd_ClampsQuantityBeforeSending(t *testing.T) {
	var sent addRequest
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		writeOK(w, map[string]any{"id": 1, "product_id": sent.ProductID, "quantity": sent.Quantity, "price": 1000}, "")
	}))

	item, err := f.client.Add(context.Background(), "42", -5, "")
	require.NoError(t, err)

	assert.Equal(t, 1, sent.Quantity, "negative quantity must be clamped to 1 before transmission")
	assert.Equal(t, 1, item.Quantity)
}

func TestAdd_PersistsBackendIssuedGuestID(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, map[string]any{"id": 1, "product_id": 42, "quantity": 1, "price": 10}, "backend-guest-7")
	}))

	_, err := f.client.Add(context.Background(), "42", 1, "")
	require.NoError(t, err)

	id, ok := f.guest.Existing(context.Background())
	require.True(t, ok)
	assert.Equal(t, "backend-guest-7", id)
}

func TestAdd_BackendRefusalReturnsErrAddFailed(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "out of stock")
	}))

	var changed int
	f.bus.Subscribe(events.CartChanged, func(events.Event) { changed++ })

	item, err := f.client.Add(context.Background(), "42", 1, "")
	assert.Nil(t, item)
	assert.ErrorIs(t, err, ErrAddFailed)
	assert.Equal(t, 0, changed, "no event on refused add")
}

func TestAdd_PublishesCartChanged(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, map[string]any{"id": 1, "product_id": 42, "quantity": 1, "price": 10}, "")
	}))

	var changed int
	f.bus.Subscribe(events.CartChanged, func(events.Event) { changed++ })

	_, err := f.client.Add(context.Background(), "42", 1, "red")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
}

func TestAdd_DuplicateConcurrentAddRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// зависает только первый запрос, повторные отвечают сразу
		first.Do(func() {
			close(entered)
			<-release
		})
		writeOK(w, map[string]any{"id": 1, "product_id": 42, "quantity": 1, "price": 10}, "")
	}))

	done := make(chan error, 1)
	go func() {
		_, err := f.client.Add(context.Background(), "42", 1, "")
		done <- err
	}()

	<-entered // первый Add дошёл до бэкенда и завис там

	_, err := f.client.Add(context.Background(), "42", 1, "")
	assert.ErrorIs(t, err, ErrAddInFlight)

	close(release)
	require.NoError(t, <-done)

	// после завершения первого Add товар снова можно добавлять
	_, err = f.client.Add(context.Background(), "42", 1, "")
	assert.NoError(t, err)
}

func TestUpdateQuantity_ClampsZeroBeforeSending(t *testing.T) {
	var sent updateRequest
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/cart/17", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		writeOK(w, nil, "")
	}))

	ok := f.client.UpdateQuantity(context.Background(), "17", 0)
	assert.True(t, ok)
	assert.Equal(t, 1, sent.Quantity, "zero quantity is sent as 1")
}

func TestUpdateQuantity_RefusalNoEvent(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "item not found")
	}))

	var changed int
	f.bus.Subscribe(events.CartChanged, func(events.Event) { changed++ })

	ok := f.client.UpdateQuantity(context.Background(), "17", 2)
	assert.False(t, ok)
	assert.Equal(t, 0, changed)
}

func TestRemove(t *testing.T) {
	var path string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		path = r.URL.Path
		writeOK(w, nil, "")
	}))

	var changed int
	f.bus.Subscribe(events.CartChanged, func(events.Event) { changed++ })

	ok := f.client.Remove(context.Background(), "17")
	assert.True(t, ok)
	assert.Equal(t, "/cart/17", path)
	assert.Equal(t, 1, changed)
}

func TestClear_PublishesBothEventsAndDropsSnapshot(t *testing.T) {
	var cleared atomic.Bool
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/cart/clear":
			cleared.Store(true)
			writeOK(w, nil, "")
		case r.Method == http.MethodGet && r.URL.Path == "/cart":
			if cleared.Load() {
				writeOK(w, []map[string]any{}, "")
			} else {
				writeOK(w, []map[string]any{{"id": 1, "product_id": 42, "quantity": 1, "price": 10}}, "")
			}
		default:
			writeError(w, "unexpected request")
		}
	}))

	require.Len(t, f.client.Fetch(context.Background()), 1)

	var changed, clearedEvents int
	f.bus.Subscribe(events.CartChanged, func(events.Event) { changed++ })
	f.bus.Subscribe(events.CartCleared, func(events.Event) { clearedEvents++ })

	ok := f.client.Clear(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, clearedEvents)

	var cached []models.CartItem
	found, err := f.kv.Get(context.Background(), "visitor:1:"+session.KeyCartItems, &cached)
	require.NoError(t, err)
	assert.False(t, found, "snapshot cache must be dropped on clear")

	assert.Empty(t, f.client.Fetch(context.Background()), "fetch after successful clear is empty")
}

func TestTransfer_NoSessionNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeOK(w, nil, "")
	}))

	_ = f.guest.ID(context.Background())

	ok := f.client.Transfer(context.Background())
	assert.False(t, ok)
	assert.Equal(t, int32(0), calls.Load(), "transfer without a session must not hit the network")
}

func TestTransfer_NoGuestNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeOK(w, nil, "")
	}))

	require.NoError(t, f.sessions.Write(context.Background(), activeSession()))

	ok := f.client.Transfer(context.Background())
	assert.False(t, ok)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTransfer_SuccessRetiresGuestID(t *testing.T) {
	var gotAuth, gotGuest string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cart/transfer", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotGuest = r.Header.Get("X-Session-ID")
		writeOK(w, nil, "")
	}))

	guestID := f.guest.ID(context.Background())
	require.NoError(t, f.sessions.Write(context.Background(), activeSession()))

	var changed int
	f.bus.Subscribe(events.CartChanged, func(events.Event) { changed++ })

	ok := f.client.Transfer(context.Background())
	require.True(t, ok)

	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, guestID, gotGuest, "both identities are sent during the transfer window")
	assert.Equal(t, 1, changed, "exactly one cart-changed event")

	_, stillThere := f.guest.Existing(context.Background())
	assert.False(t, stillThere, "guest id is retired after successful transfer")
}

func TestTransfer_FailureKeepsGuestID(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "merge temporarily unavailable")
	}))

	_ = f.guest.ID(context.Background())
	require.NoError(t, f.sessions.Write(context.Background(), activeSession()))

	ok := f.client.Transfer(context.Background())
	assert.False(t, ok)

	_, stillThere := f.guest.Existing(context.Background())
	assert.True(t, stillThere, "guest id survives a failed transfer for retry")
}
