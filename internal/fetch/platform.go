package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known job board platform.
type Platform string

// Known job boards
const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

type platformRule struct {
	platform Platform
	hosts    []string
	content  []string
	noise    []string
}

var platformRules = []platformRule{
	{
		platform: PlatformGreenhouse,
		hosts:    []string{"greenhouse.io"},
		content:  []string{".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
		noise:    []string{".application--wrapper", ".voluntary-self-id", "#usa_self_id_section", ".post-apply"},
	},
	{
		platform: PlatformLever,
		hosts:    []string{"lever.co"},
		content:  []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		noise:    []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	{
		platform: PlatformWorkday,
		hosts:    []string{"workday.com", "myworkdayjobs.com"},
		content:  []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']", ".job-description"},
		noise:    []string{"[data-automation-id='applyButton']", ".application-section"},
	},
	{
		platform: PlatformAshby,
		hosts:    []string{"ashbyhq.com"},
		content:  []string{".ashby-job-posting-right-pane", "[class*='_descriptionText']", "main"},
		noise:    []string{".ashby-application-form-container"},
	},
}

// Application forms, EEO statements and consent banners appear on every board
var commonNoise = []string{
	"form", "#application-form", ".application-form", ".apply-button-container",
	".voluntary-disclosure", ".eeo-statement", ".eeo-section", ".legal-disclosure", ".self-identification",
	".social-share", ".share-buttons", ".cookie-consent", ".gdpr-notice",
}

// JobPostingSelectors returns selectors for job pages on unrecognized sites.
func JobPostingSelectors() []string {
	return []string{
		".job-description", ".job-content", "#job-description", "#job-content",
		".posting-content", ".job-details", "[data-testid='job-description']",
		"main", "article", ".content", "#content",
	}
}

// DetectPlatform identifies the job board platform from a URL.
func DetectPlatform(urlStr string) Platform {
	if rule := ruleFor(urlStr); rule != nil {
		return rule.platform
	}
	return PlatformUnknown
}

// Selectors returns the content and noise selectors to use for a job page at urlStr.
func Selectors(urlStr string) (content, noise []string) {
	noise = append([]string(nil), commonNoise...)
	rule := ruleFor(urlStr)
	if rule == nil {
		return JobPostingSelectors(), noise
	}
	return rule.content, append(noise, rule.noise...)
}

func ruleFor(urlStr string) *platformRule {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil
	}
	host := strings.ToLower(parsed.Hostname())
	for i := range platformRules {
		for _, h := range platformRules[i].hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return &platformRules[i]
			}
		}
	}
	return nil
}
