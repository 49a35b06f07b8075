package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"gitlab.com/yelinaung/smart-finance/internal/models"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

var (
	errMissingFile  = errors.New("multipart field \"file\" is required")
	errFileTooLarge = errors.New("file exceeds upload limit")
)

type addTextRequest struct {
	Text string `json:"text" binding:"required"`
}

type expenseListResponse struct {
	Expenses []models.Expense `json:"expenses"`
	Count    int              `json:"count"`
	Total    decimal.Decimal  `json:"total"`
}

type importResponse struct {
	Count    int              `json:"count"`
	Expenses []models.Expense `json:"expenses"`
}

type adviceResponse struct {
	Advice string `json:"advice"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listExpenses(c *gin.Context) {
	records := s.ledger.List()
	if records == nil {
		records = []models.Expense{}
	}
	c.JSON(http.StatusOK, expenseListResponse{
		Expenses: records,
		Count:    len(records),
		Total:    s.ledger.Total(),
	})
}

func (s *Server) addText(c *gin.Context) {
	var req addTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(`body must be JSON of the form {"text": "..."}`))
		return
	}

	expense, err := s.ledger.AddFromText(c.Request.Context(), sessionKey(c), req.Text)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (s *Server) addFile(c *gin.Context) {
	data, mimeType, ok := s.readUpload(c)
	if !ok {
		return
	}

	res, err := s.ledger.ImportDocument(c.Request.Context(), sessionKey(c), data, mimeType)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, importResponse{Count: res.Count, Expenses: res.Records})
}

func (s *Server) addVoice(c *gin.Context) {
	data, mimeType, ok := s.readUpload(c)
	if !ok {
		return
	}

	expense, err := s.ledger.AddFromVoice(c.Request.Context(), sessionKey(c), data, mimeType)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

// readUpload reads the multipart "file" field. The part's Content-Type
// wins; otherwise the type is sniffed from the content.
func (s *Server) readUpload(c *gin.Context) ([]byte, string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(errMissingFile.Error()))
		return nil, "", false
	}
	if header.Size > maxUploadBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody(errFileTooLarge.Error()))
		return nil, "", false
	}

	f, err := header.Open()
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to open upload")
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("could not read upload"))
		return nil, "", false
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read upload")
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("could not read upload"))
		return nil, "", false
	}

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, true
}

func (s *Server) deleteExpense(c *gin.Context) {
	removed, err := s.ledger.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !removed {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody("expense not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) summary(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.Summary())
}

func (s *Server) advice(c *gin.Context) {
	text, err := s.ledger.Advice(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, adviceResponse{Advice: text})
}

// chart serves /charts/:kind where kind may carry a .png suffix.
func (s *Server) chart(c *gin.Context) {
	kind, err := report.ParseChartKind(strings.TrimSuffix(c.Param("kind"), ".png"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody("unknown chart kind"))
		return
	}

	data, err := report.Chart(kind, s.ledger.List())
	if errors.Is(err, report.ErrNoData) {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody(err.Error()))
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) exportCSV(c *gin.Context) {
	data, err := report.ExportCSV(s.ledger.List())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.ExportFilename(s.now())))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
