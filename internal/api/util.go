package api

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryLimit reads ?limit=N, falling back to def outside 1..max.
func queryLimit(c *gin.Context, def, max int) int {
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

// gormModelKeys are the untagged gorm.Model fields as they appear in JSON.
var gormModelKeys = map[string]string{
	"ID":        "id",
	"CreatedAt": "created_at",
	"UpdatedAt": "updated_at",
	"DeletedAt": "deleted_at",
}

func snakeModelKeys(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			if snake, ok := gormModelKeys[k]; ok {
				k = snake
			}
			out[k] = snakeModelKeys(val)
		}
		return out
	case []interface{}:
		for i := range vv {
			vv[i] = snakeModelKeys(vv[i])
		}
		return vv
	}
	return v
}

// MarshalIntoSnakeTimestamps round-trips v through JSON so rows that embed
// gorm.Model come out with snake_case keys like the rest of the API.
func MarshalIntoSnakeTimestamps(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return snakeModelKeys(out), nil
}
