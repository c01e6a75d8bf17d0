package constants

import "time"

// Centralized constants for env keys, headers, routes and user messages.
const (
	// Environment variable keys
	EnvConfigPath          = "IDLERPG_CONFIG"
	EnvDiscordToken        = "DISCORD_TOKEN"
	EnvDiscordClientID     = "DISCORD_CLIENT_ID"
	EnvDiscordClientSecret = "DISCORD_CLIENT_SECRET"
	EnvSessionSecret       = "SESSION_SECRET"
	EnvSessionSecureCookie = "SESSION_SECURE_COOKIE"
	EnvDatabaseDSN         = "DATABASE_DSN"

	DefaultConfigPath = "idlerpg.toml"

	// HTTP headers and content types
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"

	CacheControlHeader  = "Cache-Control"
	CacheControlNoCache = "no-cache, no-store, must-revalidate"

	// Authorization prefix
	BearerPrefix = "Bearer "

	// Session / Cookie names
	CookieSessionName = "arena_session"
	CookieOAuthState  = "arena_oauth_state"

	// Discord OAuth constants
	DiscordAuthURL     = "https://discord.com/api/oauth2/authorize"
	DiscordTokenURL    = "https://discord.com/api/oauth2/token"
	DiscordUserInfoURL = "https://discord.com/api/users/@me"
)

var (
	// Scopes for Discord identity
	DiscordUserScopes = []string{"identify"}
)

// Routes used by the backend router
const (
	RouteAPIPrefix           = "/api"
	RouteHealth              = "/health"
	RouteVersion             = "/version"
	RouteLeaderboard         = "/leaderboard"
	RoutePlayerTower         = "/players/:userID/tower"
	RouteSlotSeats           = "/slots/seats"
	RouteLedger              = "/ledger"
	RouteEscrows             = "/escrows"
	RouteAuthDiscordLogin    = "/auth/discord/login"
	RouteAuthDiscordCallBack = "/auth/discord/callback"
)

// Common JSON response keys
const (
	JSONKeyError   = "error"
	JSONKeyDetails = "details"
	JSONKeyStatus  = "status"
)

// Common error messages used across API handlers
const (
	ErrInvalidRequest         = "Invalid request"
	ErrMissingDiscordEnv      = "Missing DISCORD_CLIENT_ID/DISCORD_CLIENT_SECRET in environment"
	ErrPlayerNotFound         = "Player not found"
	ErrFailedFetchLeaderboard = "Failed to fetch leaderboard"
	ErrFailedFetchTower       = "Failed to fetch tower progress"
	ErrFailedFetchSeats       = "Failed to fetch seats"
	ErrFailedFetchLedger      = "Failed to fetch ledger"
	ErrFailedFetchEscrows     = "Failed to fetch escrows"
	ErrInvalidState           = "Invalid OAuth state"
	ErrFailedExchangeToken    = "Failed to exchange token"
	ErrFailedGetUserInfo      = "Failed to get user info"
	ErrFailedReadUserData     = "Failed to read user data: %s"
	ErrFailedCreateSession    = "Failed to create session"

	ErrAuthRequired   = "Authentication required"
	ErrInvalidSession = "Invalid session"
	ErrGMOnly         = "Game master access required"
)

// Chat messages shown to players by the command router.
const (
	MsgProfileNotFound    = "You don't have a character yet."
	MsgInsufficientFunds  = "You are too poor for that."
	MsgConcurrentFight    = "You are already in a fight. Finish it first."
	MsgNoEquippedPet      = "You need an equipped pet for that."
	MsgTowerNotStarted    = "You have not entered the tower yet. Use /tower start."
	MsgTowerStarted       = "You stand before the tower. Good luck."
	MsgInvalidWager       = "That wager is not valid."
	MsgSelfBattle         = "You can't fight yourself."
	MsgNotSeated          = "You are not sitting at a slot machine."
	MsgSeatTaken          = "That seat is taken."
	MsgAlreadySeated      = "You already have a seat."
	MsgInvalidSeat        = "That seat does not exist."
	MsgCaptchaLocked      = "Solve the captcha before doing that."
	MsgAlreadySettled     = "That fight has already been settled."
	MsgNoOpponent         = "Nobody joined the battle. Your money was refunded."
	MsgEncounterAborted   = "The fight was interrupted. All stakes were refunded."
	MsgGenericFailure     = "Something went wrong. Please try again later."
	MsgCaptchaPrompt      = "Type the following text within 60 seconds: `%s`"
	MsgCaptchaSolved      = "Captcha solved."
	MsgCaptchaWrong       = "That was not right. Try again."
	MsgCaptchaTimeout     = "Captcha timed out. You were removed from your seat."
	MsgSeatJoined         = "You sat down at seat %d."
	MsgSeatLeft           = "You left seat %d."
	MsgChestChoice        = "Choose a chest: %s"
	MsgPrestigePrompt     = "You reached the top of the tower. Prestige and start over? (yes/no)"
	MsgPrestigeAccepted   = "You are now prestige %d and back at level 1."
	MsgPrestigeDeclined   = "You stay at the top of the tower."
	MsgOperatorForcedLeft = "User %s failed the captcha and was removed from seat %d."
)

// Ledger subjects.
const (
	SubjectBattle       = "Battle Bet"
	SubjectRaidBattle   = "Raid Battle Bet"
	SubjectRaid2v2      = "Raid Battle 2v2 Bet"
	SubjectTower        = "Tower Reward"
	SubjectSlotsReward  = "Slots Reward"
	SubjectSlotsJackpot = "Slots Jackpot"

	// LedgerHouse is the counterparty for money created by the game.
	LedgerHouse = "house"
)

// Encounter kinds.
const (
	KindBattle     = "battle"
	KindRaidBattle = "raidbattle"
	KindRaid2v2    = "raidbattle2v2"
	KindHorde      = "horde"
	KindTower      = "tower"
	KindAdventure  = "adventure"
	KindDragon     = "dragon"
)

const (
	DefaultJoinTimeout  = 60 * time.Second
	DefaultInputTimeout = 60 * time.Second
)

// Logging field names
const (
	LogFieldEncounterID = "encounter_id"
	LogFieldUserID      = "user_id"
	LogFieldSeatID      = "seat_id"
	LogFieldKind        = "kind"
	LogFieldOutcome     = "outcome"
	LogFieldAmount      = "amount"
	LogFieldTask        = "task"
	LogFieldCount       = "count"
	LogFieldCommand     = "command"
	LogFieldAddr        = "addr"
	LogFieldKey         = "key"
)
