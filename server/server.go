// Copyright 2025 The Canvass Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the stored incidents over a read-only HTTP API.
package server

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gnvdata/canvass/opendata"
	"github.com/gnvdata/canvass/proximity"
	"github.com/gnvdata/canvass/store"
)

// Server serves the incidents held by an IncidentRepository.
type Server struct {
	repo store.IncidentRepository
}

// NewServer creates a server reading from repo.
func NewServer(repo store.IncidentRepository) *Server {
	return &Server{repo: repo}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/sources", s.listSources)
	r.GET("/api/incidents", s.listIncidents)
	r.GET("/api/canvass", s.canvass)

	return r
}

// Run listens on addr and serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

type sourceView struct {
	opendata.Source
	store.TableCount
}

func (s *Server) listSources(ctx *gin.Context) {
	counts, err := s.repo.Counts()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	byName := make(map[string]store.TableCount, len(counts))
	for _, c := range counts {
		byName[c.Category] = c
	}

	views := []sourceView{}
	for _, src := range opendata.Sources() {
		views = append(views, sourceView{Source: src, TableCount: byName[src.Name]})
	}

	ctx.JSON(http.StatusOK, views)
}

func (s *Server) listIncidents(ctx *gin.Context) {
	incidents, err := s.repo.Incidents()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if incidents == nil {
		incidents = []proximity.Incident{}
	}

	ctx.JSON(http.StatusOK, incidents)
}

type canvassResponse struct {
	Center   *proximity.Incident `json:"center"`
	RadiusKm float64             `json:"radius_km"`
	Results  []proximity.Result  `json:"results"`
}

func (s *Server) canvass(ctx *gin.Context) {
	radius := proximity.DefaultRadiusKm

	if q := ctx.Query("radius_km"); q != "" {
		r, err := strconv.ParseFloat(q, 64)
		if err != nil || r <= 0 || math.IsInf(r, 0) || math.IsNaN(r) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "radius_km must be a positive number"})

			return
		}

		radius = r
	}

	incidents, err := s.repo.Incidents()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	resp := canvassResponse{RadiusKm: radius, Results: []proximity.Result{}}

	if center, ok := proximity.SelectCenter(incidents); ok {
		resp.Center = &center
		resp.Results = proximity.WithinRadius(incidents, center.Point, radius)
		proximity.SortResults(resp.Results)
	}

	ctx.JSON(http.StatusOK, resp)
}
