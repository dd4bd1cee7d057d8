package http

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/adapters/signal"
	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/config"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/metrics"
)

const sessionName = "PokerSessions"

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable participant id kept
// in the signed session cookie, so reconnects rejoin as the same player.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get("client_token").(string)
		if token == "" {
			token = genClientToken()
			sess.Set("client_token", token)
			if err := sess.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": o.CountRooms()})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	h := &handlers{orch: o}

	api.GET("/rooms", h.listRooms)
	api.POST("/rooms", h.createRoom)
	api.GET("/rooms/:id", h.roomState)
	api.GET("/presets", h.presets)

	api.GET("/ws/rooms/:id", func(c *gin.Context) {
		if !roomIDPattern.MatchString(c.Param("id")) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room_id"})
			return
		}
		log.Info().Str("module", "adapters.http").Str("pid", c.GetString("client_token")).Str("room", c.Param("id")).Msg("ws endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}

type handlers struct {
	orch *orch.Orchestrator
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms": h.orch.ListRooms(c.Request.Context()),
		"count": h.orch.CountRooms(),
	})
}

// createRoom starts the room named in the body, or a room with a fresh id
// when none is given.
func (h *handlers) createRoom(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
	}

	if req.ID == "" {
		id, err := h.orch.CreateUniqueRoom()
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id, "result": app.Created.String()})
		return
	}

	if !roomIDPattern.MatchString(req.ID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_room_id"})
		return
	}
	res, err := h.orch.CreateRoom(domain.RoomID(req.ID))
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusCreated
	if res == app.AlreadyExists {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"id": req.ID, "result": res.String()})
}

func (h *handlers) roomState(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	room, err := h.orch.GetState(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signal.NewRoomView(room, domain.ParticipantID(c.GetString("client_token"))))
}

func (h *handlers) presets(c *gin.Context) {
	out := make(map[string][]domain.Card, len(domain.Presets()))
	for _, name := range domain.Presets() {
		out[name], _ = domain.PresetCards(name)
	}
	c.JSON(http.StatusOK, gin.H{"presets": out, "default": domain.DefaultPreset})
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orch.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrTooManyRooms), errors.Is(err, orch.ErrIDGeneration), errors.Is(err, app.ErrManagerClosed):
		status = http.StatusServiceUnavailable
	}
	log.Warn().Str("module", "adapters.http").Err(err).Int("status", status).Msg("request failed")
	c.JSON(status, gin.H{"error": signal.ErrorCode(err), "message": err.Error()})
}
