package controllers

import (
	"net/http"

	"github.com/lamnguyendev/keymart-backend/api/responses"
	"github.com/lamnguyendev/keymart-backend/pkg/db"
	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/redis"
)

type HealthController struct {
	db    *db.Client
	redis *redis.Client
}

func NewHealthController(client *db.Client, rdb *redis.Client) *HealthController {
	return &HealthController{db: client, redis: rdb}
}

func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	if err := c.db.Ping(r.Context()); err != nil {
		responses.WriteError(w, r, errors.Wrap(errors.CodeDependency, err, "database unavailable"))
		return
	}
	if c.redis != nil {
		if err := c.redis.Ping(r.Context()); err != nil {
			responses.WriteError(w, r, errors.Wrap(errors.CodeDependency, err, "redis unavailable"))
			return
		}
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}
