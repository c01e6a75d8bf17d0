package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ericogr/idlerpg-arena/internal/constants"
)

// NewRouter mounts the status, GM and auth routes.
func NewRouter(h *StatusHandler, auth *AuthHandler, sessions *Sessions, isGM func(string) bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	apiRoutes := router.Group(constants.RouteAPIPrefix)
	apiRoutes.Use(noCache)
	{
		apiRoutes.GET(constants.RouteHealth, Health)
		apiRoutes.GET(constants.RouteVersion, Version)
		apiRoutes.GET(constants.RouteLeaderboard, h.ListLeaderboard)
		apiRoutes.GET(constants.RoutePlayerTower, h.GetPlayerTower)
		apiRoutes.GET(constants.RouteSlotSeats, h.ListSeats)

		gm := apiRoutes.Group("")
		gm.Use(AuthRequired(sessions), GMOnly(isGM))
		gm.GET(constants.RouteLedger, h.ListLedger)
		gm.GET(constants.RouteEscrows, h.ListEscrows)
	}

	router.GET(constants.RouteAuthDiscordLogin, auth.DiscordLogin)
	router.GET(constants.RouteAuthDiscordCallBack, auth.DiscordCallback)
	return router
}

// noCache keeps clients from caching live game state.
func noCache(c *gin.Context) {
	c.Header(constants.CacheControlHeader, constants.CacheControlNoCache)
	c.Next()
}
