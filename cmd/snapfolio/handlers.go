// REST handlers for the local daemon.
package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evchen/snapfolio/internal/db"
	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/remote"
	"github.com/evchen/snapfolio/internal/sync"
)

// App bundles the daemon's dependencies for the HTTP layer.
type App struct {
	repo   *db.Repository
	engine *sync.Engine
	client *remote.Client
}

func writeError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrInvalid:
		status = http.StatusBadRequest
	case apperrors.ErrConstraint, apperrors.ErrDuplicate, apperrors.ErrSyncInProgress:
		status = http.StatusConflict
	case apperrors.ErrSyncNotAuthenticated:
		status = http.StatusUnauthorized
	case apperrors.ErrRemoteUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"code": string(code), "error": err.Error()})
}

// =====================================================
// Items
// =====================================================

type itemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

func (a *App) createItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	item := &models.Item{
		Title:       req.Title,
		Description: req.Description,
		Source:      req.Source,
	}
	if err := a.repo.CreateItem(c.Request.Context(), item); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (a *App) getItem(c *gin.Context) {
	item, err := a.repo.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *App) listItems(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := a.repo.ListItems(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *App) updateItem(c *gin.Context) {
	item, err := a.repo.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	item.Title = req.Title
	item.Description = req.Description
	item.Source = req.Source
	if err := a.repo.UpdateItem(c.Request.Context(), item); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *App) deleteItem(c *gin.Context) {
	deleted, err := a.repo.DeleteItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// =====================================================
// Folders
// =====================================================

type folderRequest struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsPublic bool   `json:"is_public"`
}

func (a *App) createFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	folder := &models.Folder{Name: req.Name, Color: req.Color, IsPublic: req.IsPublic}
	if err := a.repo.CreateFolder(c.Request.Context(), folder); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (a *App) getFolder(c *gin.Context) {
	folder, err := a.repo.GetFolder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (a *App) listFolders(c *gin.Context) {
	folders, err := a.repo.ListFolders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folders)
}

func (a *App) updateFolder(c *gin.Context) {
	folder, err := a.repo.GetFolder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	folder.Name = req.Name
	folder.Color = req.Color
	folder.IsPublic = req.IsPublic
	if err := a.repo.UpdateFolder(c.Request.Context(), folder); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (a *App) deleteFolder(c *gin.Context) {
	deleted, err := a.repo.DeleteFolder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) addItemToFolder(c *gin.Context) {
	if err := a.repo.AddItemToFolder(c.Request.Context(), c.Param("itemID"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) removeItemFromFolder(c *gin.Context) {
	if err := a.repo.RemoveItemFromFolder(c.Request.Context(), c.Param("itemID"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) listFolderItems(c *gin.Context) {
	items, err := a.repo.ListFolderItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// =====================================================
// Tags
// =====================================================

type tagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (a *App) createTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tag := &models.Tag{Name: req.Name, Color: req.Color}
	if err := a.repo.CreateTag(c.Request.Context(), tag); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (a *App) listTags(c *gin.Context) {
	tags, err := a.repo.ListTags(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (a *App) updateTag(c *gin.Context) {
	tag, err := a.repo.GetTag(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	tag.Name = req.Name
	tag.Color = req.Color
	if err := a.repo.UpdateTag(c.Request.Context(), tag); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (a *App) deleteTag(c *gin.Context) {
	deleted, err := a.repo.DeleteTag(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) tagItem(c *gin.Context) {
	if err := a.repo.TagItem(c.Request.Context(), c.Param("id"), c.Param("tagID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) untagItem(c *gin.Context) {
	if err := a.repo.UntagItem(c.Request.Context(), c.Param("id"), c.Param("tagID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *App) listItemTags(c *gin.Context) {
	tags, err := a.repo.ListItemTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// =====================================================
// Search and memories
// =====================================================

func (a *App) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	resp, err := a.repo.SearchItems(c.Request.Context(), &db.SearchOptions{
		Query:  query,
		Limit:  intQuery(c, "limit", 20),
		Source: strings.TrimSpace(c.Query("source")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *App) memories(c *gin.Context) {
	date := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		date = parsed
	}
	groups, err := a.repo.MemoriesOn(c.Request.Context(), date, intQuery(c, "window", 1))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// =====================================================
// Sync
// =====================================================

func (a *App) login(c *gin.Context) {
	if err := a.client.Login(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": a.client.UserID()})
}

func (a *App) logout(c *gin.Context) {
	a.client.Logout()
	c.Status(http.StatusNoContent)
}

func (a *App) triggerSync(c *gin.Context) {
	result, err := a.engine.SyncAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *App) syncStatus(c *gin.Context) {
	status, err := a.engine.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (a *App) syncConflicts(c *gin.Context) {
	entries, err := a.repo.RecentConflicts(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "snapfolio"})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
