package http

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"counterviz/internal/config"
	apierrors "counterviz/internal/errors"
	"counterviz/internal/loader"
	"counterviz/internal/middleware"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

// Multipart field names of an analysis request.
const (
	fieldFiles     = "files"
	fieldMetric    = "metric"
	fieldCostBasis = "cost_basis"
	fieldTitles    = "titles"
	fieldUsageMin  = "usage_min"
	fieldUsageMax  = "usage_max"
	costPrefix     = "cost["
)

// multipartMemory is held in memory before uploads spill to temp files.
const multipartMemory = 8 << 20

// analysisForm is the validated shape of a multipart analysis request.
type analysisForm struct {
	Files     []string `json:"files" validate:"required,min=1,dive,filename"`
	Metric    string   `json:"metric"`
	CostBasis string   `json:"cost_basis" validate:"omitempty,oneof=auto actual"`
	Titles    []string `json:"titles" validate:"dive,max=512"`
}

// parseAnalysisRequest reads the uploads and options of a multipart analysis
// request.
func parseAnalysisRequest(r *http.Request, v *middleware.Validator) ([]loader.Input, usage.Request, error) {
	var req usage.Request

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, req, apierrors.ErrPayloadTooLarge
		}
		return nil, req, apierrors.InvalidRequestWithError(err)
	}
	form := r.MultipartForm
	values := url.Values(form.Value)

	headers := form.File[fieldFiles]
	if len(headers) > config.MaxUploadFiles {
		return nil, req, apierrors.ErrValidation(fieldFiles,
			fmt.Sprintf("at most %d files can be analyzed at once", config.MaxUploadFiles))
	}

	af := analysisForm{
		Metric:    strings.TrimSpace(values.Get(fieldMetric)),
		CostBasis: strings.ToLower(strings.TrimSpace(values.Get(fieldCostBasis))),
		Titles:    nonEmpty(form.Value[fieldTitles]),
	}
	for _, fh := range headers {
		af.Files = append(af.Files, fh.Filename)
	}
	if err := v.ValidateStruct(af); err != nil {
		return nil, req, err
	}

	if af.Metric != "" {
		metric, err := domain.ParseMetricType(af.Metric)
		if err != nil {
			return nil, req, apierrors.ErrValidation(fieldMetric, err.Error())
		}
		req.Metric = metric
	}
	if af.CostBasis != "" {
		req.CostPolicy = domain.CostPolicy(af.CostBasis)
	}
	req.Titles = af.Titles

	rng, err := parseUsageRange(values.Get(fieldUsageMin), values.Get(fieldUsageMax))
	if err != nil {
		return nil, req, err
	}
	if rng != nil {
		if err := v.ValidateStruct(rng); err != nil {
			return nil, req, err
		}
		req.UsageRange = rng
	}

	costs, err := parseCosts(form.Value)
	if err != nil {
		return nil, req, err
	}
	req.Costs = costs

	inputs := make([]loader.Input, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, req, apierrors.InvalidRequestWithError(err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, req, apierrors.InvalidRequestWithError(err)
		}
		inputs = append(inputs, loader.Input{Name: fh.Filename, Data: data})
	}
	return inputs, req, nil
}

// parseUsageRange returns nil when neither bound is given. A missing bound
// leaves that side open.
func parseUsageRange(minS, maxS string) (*usage.UsageRange, error) {
	minS, maxS = strings.TrimSpace(minS), strings.TrimSpace(maxS)
	if minS == "" && maxS == "" {
		return nil, nil
	}
	rng := &usage.UsageRange{Min: 0, Max: math.MaxFloat64}
	if minS != "" {
		v, err := strconv.ParseFloat(minS, 64)
		if err != nil {
			return nil, apierrors.ErrValidation(fieldUsageMin, "must be a number")
		}
		rng.Min = v
	}
	if maxS != "" {
		v, err := strconv.ParseFloat(maxS, 64)
		if err != nil {
			return nil, apierrors.ErrValidation(fieldUsageMax, "must be a number")
		}
		rng.Max = v
	}
	return rng, nil
}

// parseCosts collects the "cost[<file name>]" fields. Blank amounts mean no
// cost was entered for that file.
func parseCosts(values map[string][]string) (map[string]decimal.Decimal, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.HasPrefix(k, costPrefix) && strings.HasSuffix(k, "]") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	costs := make(map[string]decimal.Decimal, len(keys))
	for _, k := range keys {
		name := strings.TrimSpace(k[len(costPrefix) : len(k)-1])
		raw := ""
		if vs := values[k]; len(vs) > 0 {
			raw = strings.TrimSpace(vs[0])
		}
		if name == "" || raw == "" {
			continue
		}
		amount, err := usage.ParseCost(raw)
		if err != nil {
			return nil, apierrors.ErrValidation(k, err.Error())
		}
		costs[name] = amount
	}
	return costs, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
