package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/susu3304/seisanbot/internal/db"
	"go.uber.org/zap"
)

// Protected handlers
func (a *API) handleUserGuilds(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	guilds, err := a.getDiscordGuilds(r.Context(), claims.AccessToken)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to get guilds: %v", err), http.StatusBadGateway)
		return
	}
	if guilds == nil {
		guilds = []DiscordGuild{}
	}
	writeJSON(w, http.StatusOK, guilds)
}

func (a *API) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r)
	if !ok {
		return
	}

	settlements, err := a.store.ListSettlements(r.Context(), guildID)
	if err != nil {
		a.logger.Error("list settlements failed", zap.Int64("guild_id", guildID), zap.Error(err))
		http.Error(w, "failed to list settlements", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settlements)
}

func (a *API) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	guildID, ok := a.authorizeGuild(w, r)
	if !ok {
		return
	}
	id, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	s, err := a.store.GetSettlement(r.Context(), guildID, id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "settlement not found", http.StatusNotFound)
		return
	case err != nil:
		a.logger.Error("get settlement failed", zap.Int64("guild_id", guildID), zap.Int64("id", id), zap.Error(err))
		http.Error(w, "failed to get settlement", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// authorizeGuild parses {guild_id} and checks the caller belongs to it,
// writing the error response itself when not.
func (a *API) authorizeGuild(w http.ResponseWriter, r *http.Request) (int64, bool) {
	guildID, err := pathInt(r, "guild_id")
	if err != nil {
		http.Error(w, "invalid guild_id", http.StatusBadRequest)
		return 0, false
	}
	if !a.userHasGuildAccess(r, guildID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return 0, false
	}
	return guildID, true
}

func (a *API) userHasGuildAccess(r *http.Request, guildID int64) bool {
	claims := claimsFrom(r.Context())
	if claims == nil {
		return false
	}
	guilds, err := a.getDiscordGuilds(r.Context(), claims.AccessToken)
	if err != nil {
		a.logger.Warn("guild lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return false
	}

	for _, guild := range guilds {
		id, _ := strconv.ParseInt(guild.ID, 10, 64)
		if id == guildID {
			return true
		}
	}
	return false
}
