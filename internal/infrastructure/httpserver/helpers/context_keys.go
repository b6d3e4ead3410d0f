package helpers

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ctxKey string

const keyIdentityID ctxKey = "identity_id"

func SetIdentityID(c echo.Context, id uuid.UUID) { c.Set(string(keyIdentityID), id) }
func GetIdentityIDRaw(c echo.Context) (uuid.UUID, bool) {
	v := c.Get(string(keyIdentityID))
	id, ok := v.(uuid.UUID)
	return id, ok
}
