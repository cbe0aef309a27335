package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Rooms/internal/adapters/signal"
	"github.com/dkeye/Rooms/internal/app/orch"
	"github.com/dkeye/Rooms/internal/config"
	"github.com/dkeye/Rooms/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "ct"

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token kept in the
// session cookie. It only labels logs; directory identity is per socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type roomDetail struct {
	Room  domain.RoomInfo   `json:"room"`
	Peers []domain.PeerInfo `json:"peers"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("RoomsSessions", store))
	r.Use(ClientTokenMiddleware())

	ctrl := signal.NewSignalWSController(o, cfg)

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		joinCode := c.Query("joincode")
		rooms := o.DiscoverRooms(joinCode)
		if rooms == nil {
			rooms = []domain.RoomInfo{}
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "joincode": joinCode})
	})

	api.GET("/rooms/:uuid", func(c *gin.Context) {
		room, ok := o.Rooms.Get(c.Param("uuid"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNoSuchRoom.Error()})
			return
		}
		c.JSON(http.StatusOK, roomDetail{Room: room.Info(), Peers: room.Peers()})
	})

	if cfg.Mode == "debug" {
		api.GET("/debug/rooms", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
		})
	}

	api.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"rooms":    o.Rooms.Len(),
			"sessions": o.Registry.Len(),
		})
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
