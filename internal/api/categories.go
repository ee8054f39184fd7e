package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"todo-planner/internal/service"
)

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := h.deps.Categories.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *handlers) createCategory(c *gin.Context) {
	var in service.CategoryInput
	if err := c.ShouldBind(&in); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(c, badRequest("invalid request body"))
		return
	}
	category, err := h.deps.Categories.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *handlers) deleteCategory(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.deps.Categories.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}
