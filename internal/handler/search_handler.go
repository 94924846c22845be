package handler

import (
	"net/http"
	"strings"

	"phrasedesk/internal/activity"
	"phrasedesk/internal/library"
	"phrasedesk/internal/service"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// Search tabs
const (
	TabLibrary  = "library"
	TabRoster   = "roster"
	TabActivity = "activity"
)

// SearchHandler routes a settled search term to whichever tab is active
type SearchHandler struct {
	phraseService   service.PhraseService
	rosterService   service.RosterService
	activityService service.ActivityService
}

func NewSearchHandler(phrases service.PhraseService, roster service.RosterService, activity service.ActivityService) *SearchHandler {
	return &SearchHandler{phraseService: phrases, rosterService: roster, activityService: activity}
}

func (h *SearchHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/search", h.Search)
}

// Search dispatches the term to the active tab's searcher
// @Summary      Global search
// @Description  library searches phrases; roster and activity are admin only.
// @Tags         search
// @Produce      json
// @Security     BearerAuth
// @Param        tab    query     string  true   "library, roster or activity"
// @Param        q      query     string  false  "Search term"
// @Param        group  query     string  false  "Activity grouping: date or user"
// @Success      200    {object}  response.Response
// @Failure      400    {object}  response.Response
// @Failure      403    {object}  response.Response
// @Router       /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	tab := strings.ToLower(strings.TrimSpace(c.Query("tab")))
	term := c.Query("q")
	ctx := c.Request.Context()

	var (
		data interface{}
		err  error
	)
	switch tab {
	case TabLibrary:
		data, err = h.phraseService.Browse(ctx, library.Query{Search: term})
	case TabRoster, TabActivity:
		if !actorOf(c).IsAdmin() {
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		if tab == TabRoster {
			data, err = h.rosterService.Search(ctx, term)
		} else {
			data, err = h.activityService.List(ctx, activity.ParseBy(c.Query("group")), term)
		}
	default:
		respondError(c, service.ErrUnknownTab)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}
