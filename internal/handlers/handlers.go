// Package handlers exposes the classification and QA pipelines over a small
// gin API, the surface consumed by external scripts.
package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/geoprep/internal/boundaries"
	"example.com/geoprep/internal/classifications"
	"example.com/geoprep/internal/models"
	"example.com/geoprep/internal/qa"
)

// ClassificationProvider defines the classification operations the API
// exposes. This allows for easier testing and decoupling.
type ClassificationProvider interface {
	Classifications(groupingVersion string) ([]classifications.CodeRecord, error)
	ClassificationsStrict(opts classifications.StrictOptions) (*classifications.WideTable, error)
}

// BoundaryChecker defines the QA operations the API exposes.
type BoundaryChecker interface {
	CheckDuplicates(table *qa.Table, idCol string, outFile string) (*qa.DuplicateKeyResult, error)
	EvaluateDuplicateNames(table *qa.Table, nameCol string, parentCol string, logFile string) ([]qa.DuplicateNameGroup, error)
}

// API provides handlers for the geoprep service.
type API struct {
	classifications ClassificationProvider
	qa              BoundaryChecker
	loadBoundaries  func(cfg boundaries.SourceConfig) (*qa.Table, error)
}

// NewAPI creates a new API handler over the given services.
func NewAPI(cp ClassificationProvider, qc BoundaryChecker) *API {
	return &API{
		classifications: cp,
		qa:              qc,
		loadBoundaries:  boundaries.LoadBoundaries,
	}
}

// RegisterRoutes registers the geoprep API routes with the given Gin router.
func (a *API) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	classificationRoutes := v1.Group("/classifications")
	{
		classificationRoutes.GET("", a.getClassificationsHandler)
		classificationRoutes.GET("/strict", a.getClassificationsStrictHandler)
	}

	qaRoutes := v1.Group("/qa")
	{
		qaRoutes.POST("/duplicate-keys", a.checkDuplicateKeysHandler)
		qaRoutes.POST("/duplicate-names", a.checkDuplicateNamesHandler)
	}
}

func (a *API) getClassificationsHandler(c *gin.Context) {
	version := c.Query("version")
	records, err := a.classifications.Classifications(version)
	if err != nil {
		log.Printf("Error fetching classifications: %v", err)
		respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}

func (a *API) getClassificationsStrictHandler(c *gin.Context) {
	opts := classifications.StrictOptions{
		GroupingVersion: c.Query("grouping_version"),
		RegionVersion:   c.Query("region_version"),
		IncomeVersion:   c.Query("income_version"),
	}
	if types := c.Query("types"); types != "" {
		opts.TypeToKeep = strings.Split(types, ",")
	}

	wide, err := a.classifications.ClassificationsStrict(opts)
	if err != nil {
		log.Printf("Error fetching strict classifications: %v", err)
		respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, wide)
}

// DuplicateKeysRequest is the payload for the duplicate-key check endpoint.
type DuplicateKeysRequest struct {
	Source   boundaries.SourceConfig `json:"source" binding:"required"`
	IDColumn string                  `json:"id_column" binding:"required"`
	OutFile  string                  `json:"out_file" binding:"required"`
}

func (a *API) checkDuplicateKeysHandler(c *gin.Context) {
	var req DuplicateKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}

	table, err := a.loadBoundaries(req.Source)
	if err != nil {
		log.Printf("Error loading boundary source %q: %v", req.Source.Name, err)
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeSourceLoadFailed, err.Error(), nil)
		return
	}

	result, err := a.qa.CheckDuplicates(table, req.IDColumn, req.OutFile)
	if err != nil {
		log.Printf("Error checking duplicate keys for source %q: %v", req.Source.Name, err)
		respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DuplicateNamesRequest is the payload for the duplicate-name check endpoint.
type DuplicateNamesRequest struct {
	Source       boundaries.SourceConfig `json:"source" binding:"required"`
	NameColumn   string                  `json:"name_column" binding:"required"`
	ParentColumn string                  `json:"parent_column" binding:"required"`
	LogFile      string                  `json:"log_file" binding:"required"`
}

func (a *API) checkDuplicateNamesHandler(c *gin.Context) {
	var req DuplicateNamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeValidation, "Invalid request payload", gin.H{"reason": err.Error()})
		return
	}

	table, err := a.loadBoundaries(req.Source)
	if err != nil {
		log.Printf("Error loading boundary source %q: %v", req.Source.Name, err)
		RespondWithError(c, http.StatusBadRequest, models.ErrorCodeSourceLoadFailed, err.Error(), nil)
		return
	}

	groups, err := a.qa.EvaluateDuplicateNames(table, req.NameColumn, req.ParentColumn, req.LogFile)
	if err != nil {
		log.Printf("Error checking duplicate names for source %q: %v", req.Source.Name, err)
		respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_count": len(groups), "groups": groups, "log_file": req.LogFile})
}
