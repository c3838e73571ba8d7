package endicia

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Label Server endpoints. The test server accepts any credentials and
// returns canned prices.
const (
	ProductionBaseURL = "https://labelserver.endicia.com/LabelService/EwsLabelService.asmx"
	TestBaseURL       = "https://elstestserver.endicia.com/LabelService/EwsLabelService.asmx"
)

// HTTPAPIClient is the production implementation of APIClient using the
// Label Server's XML-over-HTTP protocol.
type HTTPAPIClient struct {
	baseURL     string
	requesterID string
	accountID   string
	passphrase  string
	httpClient  *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL     string // empty selects production or test by the Test flag
	RequesterID string
	AccountID   string
	Passphrase  string
	Test        bool
	Timeout     time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Test {
			baseURL = TestBaseURL
		} else {
			baseURL = ProductionBaseURL
		}
	}

	return &HTTPAPIClient{
		baseURL:     baseURL,
		requesterID: cfg.RequesterID,
		accountID:   cfg.AccountID,
		passphrase:  cfg.Passphrase,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// XML Request/Response structures for the Endicia Label Server
// ============================================================================

type postageRateRequest struct {
	XMLName               xml.Name              `xml:"PostageRateRequest"`
	RequesterID           string                `xml:"RequesterID"`
	CertifiedIntermediary certifiedIntermediary `xml:"CertifiedIntermediary"`
	MailClass             string                `xml:"MailClass"`
	WeightOz              string                `xml:"WeightOz"`
	FromPostalCode        string                `xml:"FromPostalCode"`
	ToPostalCode          string                `xml:"ToPostalCode"`
	ToCountryCode         string                `xml:"ToCountryCode,omitempty"`
}

type certifiedIntermediary struct {
	AccountID  string `xml:"AccountID"`
	PassPhrase string `xml:"PassPhrase"`
}

type postageRateResponse struct {
	XMLName      xml.Name     `xml:"PostageRateResponse"`
	Status       int          `xml:"Status"`
	ErrorMessage string       `xml:"ErrorMessage"`
	Zone         string       `xml:"Zone"`
	PostagePrice postagePrice `xml:"PostagePrice"`
}

type postagePrice struct {
	TotalAmount string     `xml:"TotalAmount,attr"`
	Postage     postageTag `xml:"Postage"`
}

type postageTag struct {
	MailService string `xml:"MailService"`
	TotalAmount string `xml:"TotalAmount"`
}

// ============================================================================
// API Implementation
// ============================================================================

// CalculatePostageRate fetches the postage cost from the Label Server.
func (c *HTTPAPIClient) CalculatePostageRate(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	rateReq := postageRateRequest{
		RequesterID: c.requesterID,
		CertifiedIntermediary: certifiedIntermediary{
			AccountID:  c.accountID,
			PassPhrase: c.passphrase,
		},
		MailClass:      req.MailClass,
		WeightOz:       req.WeightOz,
		FromPostalCode: req.FromPostalCode,
		ToPostalCode:   req.ToPostalCode,
		ToCountryCode:  req.ToCountryCode,
	}

	xmlBody, err := xml.Marshal(rateReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// The Label Server takes the XML document as a form field.
	form := url.Values{}
	form.Set("postageRateRequestXML", string(xmlBody))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/CalculatePostageRateXML", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			Status:      resp.StatusCode,
			Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)),
		}
	}

	var rateResp postageRateResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rateResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// The service reports failures in-band with a non-zero status.
	if rateResp.Status != 0 {
		return nil, &APIError{
			Status:      rateResp.Status,
			Description: rateResp.ErrorMessage,
		}
	}

	return &RateResponse{
		Status:      rateResp.Status,
		TotalAmount: rateResp.PostagePrice.TotalAmount,
		MailService: rateResp.PostagePrice.Postage.MailService,
		Zone:        rateResp.Zone,
	}, nil
}

var _ APIClient = (*HTTPAPIClient)(nil)
