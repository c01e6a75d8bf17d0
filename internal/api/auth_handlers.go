package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/ericogr/idlerpg-arena/internal/constants"
	"github.com/ericogr/idlerpg-arena/internal/logging"
)

const oauthStateMaxAge = 300

// DiscordEndpoint is Discord's OAuth2 authorization server.
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:  constants.DiscordAuthURL,
	TokenURL: constants.DiscordTokenURL,
}

type AuthHandler struct {
	sessions    *Sessions
	conf        *oauth2.Config
	userInfoURL string
	isGM        func(userID string) bool
}

func NewAuthHandler(sessions *Sessions, clientID, clientSecret, redirectURL string, isGM func(string) bool) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       constants.DiscordUserScopes,
			Endpoint:     DiscordEndpoint,
		},
		userInfoURL: constants.DiscordUserInfoURL,
		isGM:        isGM,
	}
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

func (h *AuthHandler) configured() bool {
	return h.conf.ClientID != "" && h.conf.ClientSecret != ""
}

// DiscordLogin redirects to Discord with a fresh state cookie.
func (h *AuthHandler) DiscordLogin(c *gin.Context) {
	if !h.configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: constants.ErrMissingDiscordEnv})
		return
	}
	state := uuid.NewString()
	setSessionCookie(c, constants.CookieOAuthState, state, oauthStateMaxAge)
	c.Redirect(http.StatusFound, h.conf.AuthCodeURL(state))
}

func (h *AuthHandler) DiscordCallback(c *gin.Context) {
	if !h.configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: constants.ErrMissingDiscordEnv})
		return
	}
	want, err := c.Cookie(constants.CookieOAuthState)
	if err != nil || want == "" || c.Query("state") != want {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidState})
		return
	}
	clearCookie(c, constants.CookieOAuthState)
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	ctx := c.Request.Context()
	token, err := h.conf.Exchange(ctx, code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrFailedExchangeToken, constants.JSONKeyDetails: err.Error()})
		return
	}

	resp, err := h.conf.Client(ctx, token).Get(h.userInfoURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{constants.JSONKeyError: constants.ErrFailedGetUserInfo, constants.JSONKeyDetails: err.Error()})
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{constants.JSONKeyError: fmt.Sprintf(constants.ErrFailedReadUserData, err.Error())})
		return
	}
	var user discordUser
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &user) != nil || user.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrFailedGetUserInfo})
		return
	}
	name := user.GlobalName
	if name == "" {
		name = user.Username
	}

	sess, err := h.sessions.Mint(user.ID, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedCreateSession, constants.JSONKeyDetails: err.Error()})
		return
	}
	setSessionCookie(c, constants.CookieSessionName, sess, int(h.sessions.TTL().Seconds()))
	gm := h.isGM(user.ID)
	logging.Info("discord login", logging.Fields{constants.LogFieldUserID: user.ID, "gm": gm})
	c.JSON(http.StatusOK, gin.H{"user_id": user.ID, "name": name, "gm": gm})
}
