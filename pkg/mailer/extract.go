package mailer

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/apiresponses"
	"github.com/telekom/csv-mailer/pkg/extract"
	"github.com/telekom/csv-mailer/pkg/metrics"
	"github.com/telekom/csv-mailer/pkg/system"
)

// UploadField is the multipart form field carrying the CSV file.
const UploadField = "file"

// ExtractResponse is returned by POST /api/extract.
type ExtractResponse struct {
	FileName  string   `json:"fileName,omitempty"`
	Emails    []string `json:"emails"`
	Count     int      `json:"count"`
	TotalRows int      `json:"totalRows"`
}

// ExtractController serves POST /api/extract. It accepts a multipart upload
// in field "file" or a raw text/csv body.
type ExtractController struct {
	log      *zap.SugaredLogger
	maxBytes int64
}

func NewExtractController(log *zap.SugaredLogger, maxBytes int64) *ExtractController {
	return &ExtractController{log: log, maxBytes: maxBytes}
}

func (ec *ExtractController) BasePath() string {
	return "extract"
}

func (ec *ExtractController) Handlers() []gin.HandlerFunc {
	return nil
}

func (ec *ExtractController) Register(rg *gin.RouterGroup) error {
	rg.POST("", instrumentedHandler("handleExtract", ec.handleExtract))
	return nil
}

func isCSVName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

func (ec *ExtractController) handleExtract(c *gin.Context) {
	log := system.GetReqLogger(c, ec.log)
	if ec.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ec.maxBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	var (
		fileName string
		res      extract.Result
		err      error
	)
	switch mediaType {
	case "multipart/form-data":
		fh, ferr := c.FormFile(UploadField)
		if ferr != nil {
			ec.respondReadError(c, ferr, "Missing file upload")
			return
		}
		fileName = fh.Filename
		if !isCSVName(fileName) {
			apiresponses.RespondBadRequest(c, "Please upload a CSV file")
			return
		}
		f, oerr := fh.Open()
		if oerr != nil {
			apiresponses.RespondInternalError(c, "read uploaded file", oerr, log)
			return
		}
		defer f.Close()
		res, err = extract.Reader(f)
	case "text/csv", "text/plain", "application/csv":
		res, err = extract.Reader(c.Request.Body)
	default:
		apiresponses.RespondBadRequest(c, "Please upload a CSV file")
		return
	}
	if err != nil {
		ec.respondReadError(c, err, "Error parsing CSV file")
		return
	}

	if res.Count() == 0 {
		log.Infow("No addresses found in upload", "fileName", fileName, "totalRows", res.TotalRows)
		apiresponses.RespondBadRequest(c, "No email addresses found in the CSV file")
		return
	}

	metrics.ExtractAddresses.Add(float64(res.Count()))
	log.Infow("Extracted email addresses",
		"fileName", fileName,
		"count", res.Count(),
		"totalRows", res.TotalRows)
	apiresponses.RespondOK(c, ExtractResponse{
		FileName:  fileName,
		Emails:    res.Emails,
		Count:     res.Count(),
		TotalRows: res.TotalRows,
	})
}

func (ec *ExtractController) respondReadError(c *gin.Context, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		apiresponses.RespondRequestTooLarge(c, tooLarge.Limit)
		return
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, http.ErrMissingFile) {
		apiresponses.RespondBadRequest(c, message)
		return
	}
	apiresponses.RespondBadRequestWithDetails(c, message, err.Error())
}
