package gateway

import "strconv"

// Config carries the shared-secret credentials and static request parameters
// agreed with the payment gateway.
type Config struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string
	RequestType string
	Lang        string
}

// Signer builds signed outbound requests and verifies inbound callbacks.
type Signer struct {
	cfg Config
}

// NewSigner returns a signer bound to the gateway credentials.
func NewSigner(cfg Config) *Signer {
	if cfg.RequestType == "" {
		cfg.RequestType = "captureWallet"
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	return &Signer{cfg: cfg}
}

// NewCreateRequest assembles the canonical parameter set for a payment
// creation and signs it with the shared secret.
func (s *Signer) NewCreateRequest(requestID, orderID, amount, orderInfo, extraData string) CreateRequest {
	req := CreateRequest{
		PartnerCode: s.cfg.PartnerCode,
		AccessKey:   s.cfg.AccessKey,
		RequestID:   requestID,
		Amount:      amount,
		OrderID:     orderID,
		OrderInfo:   orderInfo,
		RedirectURL: s.cfg.RedirectURL,
		IPNURL:      s.cfg.IPNURL,
		RequestType: s.cfg.RequestType,
		ExtraData:   extraData,
		Lang:        s.cfg.Lang,
	}
	req.Signature = Sign(map[string]string{
		"partnerCode": req.PartnerCode,
		"accessKey":   req.AccessKey,
		"requestId":   req.RequestID,
		"amount":      req.Amount,
		"orderId":     req.OrderID,
		"orderInfo":   req.OrderInfo,
		"redirectUrl": req.RedirectURL,
		"ipnUrl":      req.IPNURL,
		"requestType": req.RequestType,
		"extraData":   req.ExtraData,
		"lang":        req.Lang,
	}, s.cfg.SecretKey)
	return req
}

// VerifyCallback recomputes the signature over the callback's own parameter
// set and compares it against the one the gateway sent.
func (s *Signer) VerifyCallback(p CallbackPayload) bool {
	return VerifySignature(map[string]string{
		"partnerCode":  p.PartnerCode,
		"amount":       p.Amount,
		"extraData":    p.ExtraData,
		"message":      p.Message,
		"orderId":      p.OrderID,
		"orderInfo":    p.OrderInfo,
		"orderType":    p.OrderType,
		"payType":      p.PayType,
		"requestId":    p.RequestID,
		"responseTime": p.ResponseTime,
		"resultCode":   strconv.Itoa(p.ResultCode),
		"transId":      p.TransID,
	}, s.cfg.SecretKey, p.Signature)
}

// SignCallback produces a valid callback signature. Exposed for tests and
// gateway simulators.
func (s *Signer) SignCallback(p CallbackPayload) string {
	return Sign(map[string]string{
		"partnerCode":  p.PartnerCode,
		"amount":       p.Amount,
		"extraData":    p.ExtraData,
		"message":      p.Message,
		"orderId":      p.OrderID,
		"orderInfo":    p.OrderInfo,
		"orderType":    p.OrderType,
		"payType":      p.PayType,
		"requestId":    p.RequestID,
		"responseTime": p.ResponseTime,
		"resultCode":   strconv.Itoa(p.ResultCode),
		"transId":      p.TransID,
	}, s.cfg.SecretKey)
}
