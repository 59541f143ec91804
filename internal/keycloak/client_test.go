package keycloak

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockKeycloak создаёт mock HTTP-сервер Keycloak.
// tokenHandler обрабатывает запросы на получение токена,
// adminHandler — запросы к Admin REST API.
func setupMockKeycloak(t *testing.T, tokenHandler, adminHandler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/realms/etl/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenHandler != nil {
			tokenHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   300,
		})
	})

	admin := func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
	mux.HandleFunc("/admin/realms/etl", admin)
	mux.HandleFunc("/admin/realms/etl/", admin)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(server.URL+"/", "etl", "api-etl", "test-secret", server.Client(), testLogger())
	return server, client
}

// TestClient_TokenCaching проверяет кэширование токена.
func TestClient_TokenCaching(t *testing.T) {
	var tokenRequests atomic.Int32

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests.Add(1)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "cached-token", ExpiresIn: 300})
		},
		nil,
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		token, err := client.getToken(ctx)
		if err != nil {
			t.Fatalf("Ошибка получения токена: %v", err)
		}
		if token != "cached-token" {
			t.Errorf("ожидался cached-token, получен %s", token)
		}
	}

	if n := tokenRequests.Load(); n != 1 {
		t.Errorf("ожидался 1 запрос токена, было %d", n)
	}
}

// TestClient_TokenRefreshBefore30s проверяет обновление за 30 секунд до истечения.
func TestClient_TokenRefreshBefore30s(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "new-token", ExpiresIn: 300})
		},
		nil,
	)

	client.accessToken = "expiring-token"
	client.tokenExpiry = time.Now().Add(20 * time.Second)

	token, err := client.getToken(context.Background())
	if err != nil {
		t.Fatalf("Ошибка обновления токена: %v", err)
	}
	if token != "new-token" {
		t.Errorf("ожидался new-token, получен %s", token)
	}
}

// TestClient_ClientCredentialsFlow проверяет формат запроса Client Credentials.
func TestClient_ClientCredentialsFlow(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("ожидался POST, получен %s", r.Method)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("Ошибка парсинга формы: %v", err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Errorf("ожидался grant_type=client_credentials, получен %s", r.Form.Get("grant_type"))
			}
			if r.Form.Get("client_id") != "api-etl" {
				t.Errorf("ожидался client_id=api-etl, получен %s", r.Form.Get("client_id"))
			}
			if r.Form.Get("client_secret") != "test-secret" {
				t.Errorf("ожидался client_secret=test-secret, получен %s", r.Form.Get("client_secret"))
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "ok", ExpiresIn: 300})
		},
		nil,
	)

	if _, err := client.getToken(context.Background()); err != nil {
		t.Fatalf("Ошибка: %v", err)
	}
}

// TestClient_TokenError проверяет обработку ошибки получения токена.
func TestClient_TokenError(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
		},
		nil,
	)

	_, err := client.FindUsersByUsername(context.Background(), "admin_user")
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("ожидалась ошибка со статусом 401, получена: %v", err)
	}
}

// TestClient_FindUsersByUsername проверяет точный поиск пользователя.
func TestClient_FindUsersByUsername(t *testing.T) {
	_, client := setupMockKeycloak(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-access-token" {
				t.Errorf("ожидался Bearer test-access-token, получен %s", auth)
			}
			if r.URL.Path != "/admin/realms/etl/users" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			q := r.URL.Query()
			if q.Get("exact") != "true" {
				t.Errorf("ожидался exact=true, получен %q", q.Get("exact"))
			}

			w.Header().Set("Content-Type", "application/json")
			if q.Get("username") == "consultor user" {
				json.NewEncoder(w).Encode([]UserRepresentation{
					{ID: "u-2", Username: "consultor user", Enabled: true},
				})
				return
			}
			w.Write([]byte(`[]`))
		},
	)

	users, err := client.FindUsersByUsername(context.Background(), "consultor user")
	if err != nil {
		t.Fatalf("Ошибка FindUsersByUsername: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u-2" {
		t.Errorf("ожидался пользователь u-2, получено %+v", users)
	}

	users, err = client.FindUsersByUsername(context.Background(), "desconocido")
	if err != nil {
		t.Fatalf("Ошибка FindUsersByUsername: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ожидался пустой список, получено %+v", users)
	}
}

// TestClient_CheckReady проверяет статусы CheckReady.
func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    string
	}{
		{"realm включён", true, "ok"},
		{"realm отключён", false, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockKeycloak(t, nil,
				func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path != "/admin/realms/etl" {
						w.WriteHeader(http.StatusNotFound)
						return
					}
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(RealmRepresentation{Realm: "etl", Enabled: tt.enabled})
				},
			)

			status, msg := client.CheckReady()
			if status != tt.want {
				t.Errorf("ожидался status=%s, получен %s: %s", tt.want, status, msg)
			}
		})
	}
}

// TestClient_CheckReady_Fail проверяет CheckReady при недоступности.
func TestClient_CheckReady_Fail(t *testing.T) {
	client := New(
		"http://localhost:1",
		"etl",
		"api-etl",
		"secret",
		&http.Client{Timeout: 100 * time.Millisecond},
		testLogger(),
	)

	status, _ := client.CheckReady()
	if status != "fail" {
		t.Errorf("ожидался status=fail, получен %s", status)
	}
}
