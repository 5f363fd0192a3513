package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/mail"
)

// Bank identifiers written to the Bank column.
const (
	BankICICI = "ICICI"
	BankHDFC  = "HDFC"
	BankAmex  = "Amex"
	BankSBI   = "SBI"
)

// UnknownMerchant is written when an Amex alert names no merchant.
const UnknownMerchant = "Unknown Merchant"

var (
	iciciAmount = regexp.MustCompile(`INR\s([\d,]+\.\d{2})`)
	iciciInfo   = regexp.MustCompile(`Info:\s(.*?)\.`)
	iciciCard   = regexp.MustCompile(`Credit Card XX(\d{4})`)

	hdfcAmount = regexp.MustCompile(`(?i)Rs\.?\s?([\d,]+\.\d{2})`)
	hdfcInfo   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)towards\s(.+?)\son`),
		regexp.MustCompile(`(?i)at\s(.+?)\son`),
		regexp.MustCompile(`(?i)for\s(.+?)\son`),
	}
	hdfcCard = []*regexp.Regexp{
		regexp.MustCompile(`Credit Card ending (\d{4})`),
		regexp.MustCompile(`Credit Card \*\*(\d{4})`),
	}

	hdfcUpdateAmount   = regexp.MustCompile(`(?i)for\sRs\s([\d,]+\.\d{2})`)
	hdfcUpdateMerchant = regexp.MustCompile(`(?i)for\sRs\s[\d,]+\.\d{2}\s+at\s+([^\n\r]+?)\s+on`)
	hdfcUpdateDate     = regexp.MustCompile(`on\s(\d{2}-\d{2}-\d{4})`)
	hdfcUpdateCard     = []*regexp.Regexp{
		regexp.MustCompile(`ending (\d{4})`),
		regexp.MustCompile(`\*\*(\d{4})`),
	}

	sbiAmount = regexp.MustCompile(`(?i)Rs\.?\s?([\d,]+\.\d{2})`)
	sbiInfo   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)at\s(.+?)\son`),
		regexp.MustCompile(`(?i)spent\s.*?at\s(.*?)(?:\.|\n)`),
	}
	sbiDate = regexp.MustCompile(`(?i)on\s(\d{2}/\d{2}/\d{2})`)
	sbiCard = regexp.MustCompile(`(?i)ending (\d{4})`)

	amexLegacyAmount   = regexp.MustCompile(`(?i)INR\s([\d,]+\.\d{2})`)
	amexLegacyMerchant = regexp.MustCompile(`(?i)at\s(.*?)\s(?:on|for|is)`)
	amexMerchant       = regexp.MustCompile(`(?i)Merchant:\s*\n*\s*(.*?)\s*\n`)
	amexAmount         = regexp.MustCompile(`(?i)Amount:\s*\n*INR\s*([\d,]+\.\d{2})`)
	amexDate           = regexp.MustCompile(`(?i)Date:\s*\n*\s*([0-9]{1,2}\s\w+,\s20\d{2})`)
	amexPlainCard      = regexp.MustCompile(`Account Ending: (\d{5})`)
	amexHTMLCard       = regexp.MustCompile(`ending in (\d{5})`)
)

func always(*mail.Message) bool { return true }

func match(re *regexp.Regexp, text string) string {
	s, _ := common.FirstSubmatch(text, re)
	return strings.TrimSpace(s)
}

func matchAny(text string, patterns ...*regexp.Regexp) string {
	s, _ := common.FirstSubmatch(text, patterns...)
	return strings.TrimSpace(s)
}

// iciciFormat parses ICICI card alerts from the HTML body.
func iciciFormat() Format {
	return Format{
		Name:   "alert",
		Detect: always,
		Parse: func(msg *mail.Message) (Fields, error) {
			body := msg.HTMLBody
			amount, err := amountFrom(common.FirstSubmatch(body, iciciAmount))
			if err != nil {
				return Fields{}, err
			}
			return Fields{
				Amount:      amount,
				Description: match(iciciInfo, body),
				CardLast4:   match(iciciCard, body),
				Type:        InferType(body),
			}, nil
		},
	}
}

// hdfcFormat parses HDFC card debit alerts from the HTML body.
func hdfcFormat() Format {
	return Format{
		Name:   "alert",
		Detect: always,
		Parse: func(msg *mail.Message) (Fields, error) {
			body := msg.HTMLBody
			amount, err := amountFrom(common.FirstSubmatch(body, hdfcAmount))
			if err != nil {
				return Fields{}, err
			}
			return Fields{
				Amount:      amount,
				Description: matchAny(body, hdfcInfo...),
				CardLast4:   matchAny(body, hdfcCard...),
				Type:        InferType(body),
			}, nil
		},
	}
}

// hdfcUpdateFormat parses the plain-text "Update on your HDFC Bank Credit
// Card" alerts, which carry the transaction date in the body.
func hdfcUpdateFormat(loc *time.Location) Format {
	return Format{
		Name:   "update",
		Detect: always,
		Parse: func(msg *mail.Message) (Fields, error) {
			body := msg.PlainBody
			amount, err := amountFrom(common.FirstSubmatch(body, hdfcUpdateAmount))
			if err != nil {
				return Fields{}, err
			}
			raw, ok := common.FirstSubmatch(body, hdfcUpdateDate)
			return Fields{
				Amount:      amount,
				Date:        dateFrom(raw, ok, loc, "02-01-2006"),
				Description: match(hdfcUpdateMerchant, body),
				CardLast4:   matchAny(body, hdfcUpdateCard...),
			}, nil
		},
	}
}

// sbiFormat parses SBI Card alerts. Body dates are dd/mm/yy.
func sbiFormat(loc *time.Location) Format {
	return Format{
		Name:   "alert",
		Detect: always,
		Parse: func(msg *mail.Message) (Fields, error) {
			body := msg.PlainBody
			amount, err := amountFrom(common.FirstSubmatch(body, sbiAmount))
			if err != nil {
				return Fields{}, err
			}

			raw, ok := common.FirstSubmatch(body, sbiDate)
			if ok && len(raw) == 8 {
				raw = raw[:6] + "20" + raw[6:]
			}

			return Fields{
				Amount:      amount,
				Date:        dateFrom(raw, ok, loc, "02/01/2006"),
				Description: matchAny(body, sbiInfo...),
				CardLast4:   match(sbiCard, body),
			}, nil
		},
	}
}

// amexLegacyFormat parses the one-time-password style alerts Amex sent
// before switching to merchant alerts.
func amexLegacyFormat(until time.Time) Format {
	return Format{
		Name: "legacy",
		Detect: func(msg *mail.Message) bool {
			return msg.Date.Before(until) && strings.Contains(msg.Subject, "One-Time Password")
		},
		Parse: func(msg *mail.Message) (Fields, error) {
			amount, err := amountFrom(common.FirstSubmatch(msg.HTMLBody, amexLegacyAmount))
			if err != nil {
				return Fields{}, err
			}

			merchant := UnknownMerchant
			if m, ok := common.FirstSubmatch(msg.HTMLBody, amexLegacyMerchant); ok {
				merchant = strings.TrimSpace(common.StripTags(m))
			}

			return Fields{
				Amount:      amount,
				Description: merchant,
				CardLast4:   amexCard(msg),
			}, nil
		},
	}
}

// amexCurrentFormat parses the merchant alerts, which list the merchant,
// amount and date on separate lines of the plain body.
func amexCurrentFormat(loc *time.Location) Format {
	return Format{
		Name: "current",
		Detect: func(msg *mail.Message) bool {
			return strings.Contains(msg.PlainBody, "Merchant:")
		},
		Parse: func(msg *mail.Message) (Fields, error) {
			body := msg.PlainBody
			amount, err := amountFrom(common.FirstSubmatch(body, amexAmount))
			if err != nil {
				return Fields{}, err
			}

			merchant := match(amexMerchant, body)
			if merchant == "" {
				merchant = UnknownMerchant
			}

			raw, ok := common.FirstSubmatch(body, amexDate)
			return Fields{
				Amount:      amount,
				Date:        dateFrom(raw, ok, loc, "2 January, 2006", "2 Jan, 2006"),
				Description: merchant,
				CardLast4:   amexCard(msg),
			}, nil
		},
	}
}

func amexCard(msg *mail.Message) string {
	if card := match(amexPlainCard, msg.PlainBody); card != "" {
		return card
	}
	return match(amexHTMLCard, msg.HTMLBody)
}
