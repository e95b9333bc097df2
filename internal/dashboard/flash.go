package dashboard

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/p-n-ai/pai-admin/internal/notify"
)

const flashCookie = "admin_flash"

// flash is a one-shot notification carried across a redirect.
type flash struct {
	Message  string
	Severity notify.Severity
}

func (f flash) Destructive() bool {
	return f.Severity == notify.SeverityDestructive
}

func setFlash(c *gin.Context, msg string, sev notify.Severity) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, string(sev)+":"+msg, 60, "/", "", false, true)
}

// takeFlash reads and clears the flash cookie.
func takeFlash(c *gin.Context) *flash {
	v, err := c.Cookie(flashCookie)
	if err != nil || v == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)

	sev, msg, ok := strings.Cut(v, ":")
	if !ok || msg == "" {
		return nil
	}
	return &flash{Message: msg, Severity: notify.ParseSeverity(sev)}
}
