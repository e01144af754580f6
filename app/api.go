package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gojalifs/saving-challenge/config"
	"github.com/gojalifs/saving-challenge/lib"
	"github.com/gojalifs/saving-challenge/lib/reminder"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const reminderSecretHeader = "X-Reminder-Key"

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, svc *lib.Service, dispatcher *reminder.Dispatcher) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(cfg, log, svc, dispatcher)}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go srv.ListenAndServe()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(cfg *config.Config, log *zap.Logger, svc *lib.Service, dispatcher *reminder.Dispatcher) http.Handler {
	ctrl := &controller{cfg, log, svc, dispatcher}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", ctrl.onboardUser)
		r.Post("/login", ctrl.login)
		r.Post("/notifications/remind", ctrl.runReminderPass)

		r.Group(func(r chi.Router) {
			r.Use(ctrl.authenticate)

			r.Get("/progress", ctrl.progress)
			r.Post("/savings/{week}", ctrl.toggleSaving)
			r.Get("/notifications/key", ctrl.vapidPublicKey)
			r.Post("/notifications/subscribe", ctrl.subscribePush)
			r.Delete("/notifications/subscribe", ctrl.unsubscribePush)
		})
	})
	r.Get("/verify/{nonce}", ctrl.verifyEmail)

	return r
}

type controller struct {
	cfg        *config.Config
	log        *zap.Logger
	svc        *lib.Service
	dispatcher *reminder.Dispatcher
}

type ctxKey int

const userIDKey ctxKey = 0

// authenticate resolves the bearer token into a user id before any state is
// touched; missing or invalid tokens are rejected outright.
func (ctrl *controller) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
		if token == "" {
			ctrl.reject(w, http.StatusUnauthorized, errors.New("authorization header required"))
			return
		}

		userID, err := ctrl.svc.ResolveSession(token)
		if err != nil {
			ctrl.reject(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionUserID(r *http.Request) uint {
	id, _ := r.Context().Value(userIDKey).(uint)
	return id
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		ctrl.log.Sugar().Errorw("Request failed", "error", err)
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// rejectServiceErr maps service failure classes onto HTTP statuses.
func (ctrl *controller) rejectServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lib.ErrInvalidCredentials):
		ctrl.reject(w, http.StatusUnauthorized, err)
	case errors.Is(err, lib.ErrEmailTaken):
		ctrl.reject(w, http.StatusConflict, err)
	case errors.Is(err, lib.ErrInvalidWeek), errors.Is(err, lib.ErrInvalidSubscription):
		ctrl.reject(w, http.StatusBadRequest, err)
	default:
		ctrl.reject(w, http.StatusInternalServerError, err)
	}
}

func (ctrl *controller) onboardUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Email == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("email is required"))
		return
	}
	if req.Password == "" {
		ctrl.reject(w, http.StatusBadRequest, errors.New("password is required"))
		return
	}

	user, err := ctrl.svc.OnboardUser(ctx, req.Email, req.Password)
	if err != nil {
		ctrl.rejectServiceErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusAccepted, UserView{}.From(user))
}

func (ctrl *controller) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	token, user, err := ctrl.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		ctrl.rejectServiceErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  UserView{}.From(user),
	})
}

func (ctrl *controller) verifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nonce := chi.URLParam(r, "nonce")

	ok, err := ctrl.svc.VerifyEmail(ctx, nonce)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]any{"verified": ok})
}

func (ctrl *controller) progress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, totalSaved, err := ctrl.svc.Progress(ctx, sessionUserID(r))
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, ProgressView{
		Entries:    FromMany[SavingsEntryView](entries),
		TotalSaved: totalSaved,
	})
}

func (ctrl *controller) toggleSaving(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, lib.ErrInvalidWeek)
		return
	}

	var req struct {
		Saved bool `json:"saved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	entry, err := ctrl.svc.ToggleSaving(ctx, sessionUserID(r), week, req.Saved)
	if err != nil {
		ctrl.rejectServiceErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, SavingsEntryView{}.From(*entry))
}

func (ctrl *controller) vapidPublicKey(w http.ResponseWriter, r *http.Request) {
	if !ctrl.cfg.HasVAPIDKeys() {
		ctrl.reject(w, http.StatusInternalServerError, reminder.ErrPushKeysNotConfigured)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]string{"publicKey": ctrl.cfg.VAPID.PublicKey})
}

func (ctrl *controller) subscribePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256DH string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, lib.ErrInvalidSubscription)
		return
	}

	sub, err := ctrl.svc.RegisterPushSubscription(ctx, sessionUserID(r), req.Endpoint, req.Keys.P256DH, req.Keys.Auth)
	if err != nil {
		ctrl.rejectServiceErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusCreated, SubscriptionView{}.From(*sub))
}

func (ctrl *controller) unsubscribePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.reject(w, http.StatusBadRequest, lib.ErrInvalidSubscription)
		return
	}

	if err := ctrl.svc.UnregisterPushSubscription(ctx, sessionUserID(r), req.Endpoint); err != nil {
		ctrl.rejectServiceErr(w, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, map[string]bool{"success": true})
}

// runReminderPass is the external daily trigger. Configuration errors report
// 500, a wrong secret 401; neither touches storage.
func (ctrl *controller) runReminderPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := ctrl.dispatcher.RunPass(ctx, r.Header.Get(reminderSecretHeader), time.Now())
	switch {
	case errors.Is(err, reminder.ErrSecretMismatch):
		ctrl.reject(w, http.StatusUnauthorized, err)
		return
	case errors.Is(err, reminder.ErrSecretNotConfigured), errors.Is(err, reminder.ErrPushKeysNotConfigured):
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	case err != nil:
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, report)
}
