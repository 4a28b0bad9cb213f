package api

import (
	"encoding/xml"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peerworks/classifierd/pkg/engine"
)

// handleAbout serves GET /classifier: version and build info.
func (s *Server) handleAbout(c *gin.Context) {
	c.XML(http.StatusOK, newAboutXML())
}

// handleCreateJob serves POST /classifier/jobs: parses the posted
// <job><tag>training-url</tag></job> document, enqueues a job scoped to
// every cached item, and responds 201 with a Location header and the
// freshly created job's status XML.
func (s *Server) handleCreateJob(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.XML(http.StatusBadRequest, errorsXML{Error: "could not read request body"})
		return
	}

	var req createJobRequest
	if err := xml.Unmarshal(body, &req); err != nil || req.Tag == "" {
		c.XML(http.StatusBadRequest, errorsXML{Error: "malformed job: expected a <job><tag> element carrying the training url"})
		return
	}

	job := s.engine.Submit(req.Tag, engine.ScopeAll, false)

	c.Header("Location", jobLocation(c.Request, job.ID))
	c.XML(http.StatusCreated, newJobStatusXML(job.Snapshot()))
}

// handleGetJob serves GET /classifier/jobs/{id}. A cancelled job is
// reported 404, indistinguishable from an unknown one.
func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.engine.Get(c.Param("id"))
	if !ok || job.State() == engine.StateCancelled {
		c.XML(http.StatusNotFound, errorsXML{Error: "no such job"})
		return
	}
	c.XML(http.StatusOK, newJobStatusXML(job.Snapshot()))
}

// handleDeleteJob serves DELETE /classifier/jobs/{id}: a Complete job is
// removed outright, an in-progress job is cancelled and removed; an
// unknown or already-cancelled job is 404.
func (s *Server) handleDeleteJob(c *gin.Context) {
	id := c.Param("id")
	if job, ok := s.engine.Get(id); !ok || job.State() == engine.StateCancelled {
		c.XML(http.StatusNotFound, errorsXML{Error: "no such job"})
		return
	}
	s.engine.Delete(id)
	c.Status(http.StatusOK)
}
