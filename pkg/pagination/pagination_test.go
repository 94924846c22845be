package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Offset: 0}, New(0, 0))
	assert.Equal(t, Params{Page: 3, Limit: 10, Offset: 20}, New(3, 10))
	assert.Equal(t, MaxLimit, New(1, 10_000).Limit)
}

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=2&limit=abc", nil)

	p := Parse(c)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, DefaultLimit, p.Offset)
}
