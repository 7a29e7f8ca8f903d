// Package digest renders a ranked digest and hands it to delivery sinks.
package digest

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/deusflow/musive/internal/news"
)

const Title = "Musive Briefing"

var koreanWeekdays = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}

// KoreanDate formats t like "10월 19일 월요일".
func KoreanDate(t time.Time) string {
	return fmt.Sprintf("%d월 %d일 %s", int(t.Month()), t.Day(), koreanWeekdays[t.Weekday()])
}

// Subject is the page title of the HTML briefing.
func Subject(d news.Digest, loc *time.Location) string {
	return fmt.Sprintf("%s의 음악 뉴스레터 (%d건)", KoreanDate(localTime(d.GeneratedAt, loc)), len(d.Items))
}

func localTime(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

var pageTemplate = template.Must(template.New("briefing").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>{{.Subject}}</title>
</head>
<body>
<div style="max-width: 640px; margin: 0 auto; font-family: 'Apple SD Gothic Neo', 'Malgun Gothic', sans-serif; padding: 20px; background-color: #fff;">
<h1 style="text-align: center; font-size: 28px; margin-bottom: 5px;">🎵 {{.Title}}</h1>
<p style="text-align: center; color: #888; margin-top: 0; margin-bottom: 40px;">{{.Date}}</p>
{{range .Items}}<div style="margin-bottom: 40px; border-bottom: 1px solid #eee; padding-bottom: 30px;">
<div style="font-size: 11px; color: #ff0050; font-weight: 800; text-transform: uppercase; margin-bottom: 8px;">{{.Source}}</div>
<a href="{{.Link}}" style="text-decoration: none; color: #111;">
{{if .Thumbnail}}<img src="{{.Thumbnail}}" style="width: 100%; border-radius: 12px; margin-bottom: 15px;" />
{{end}}<h3 style="margin: 0 0 12px 0; font-size: 22px; line-height: 1.3;">{{.Title}}</h3>
</a>
<p style="font-size: 16px; color: #444; line-height: 1.6; margin: 0; word-break: keep-all;">{{.Summary}}</p>
</div>
{{end}}<div style="text-align: center; margin-top: 50px; font-size: 12px; color: #aaa;">
<p>AI가 엄선하여 요약한 음악 뉴스입니다.</p>
© {{.Year}} Musive
</div>
</div>
</body>
</html>
`))

// RenderHTML renders the briefing page. Dates use loc, or the digest's own
// zone when loc is nil.
func RenderHTML(d news.Digest, loc *time.Location) ([]byte, error) {
	generated := localTime(d.GeneratedAt, loc)

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Subject string
		Title   string
		Date    string
		Year    int
		Items   []news.Item
	}{
		Subject: Subject(d, loc),
		Title:   Title,
		Date:    KoreanDate(generated),
		Year:    generated.Year(),
		Items:   d.Items,
	})
	if err != nil {
		return nil, fmt.Errorf("render briefing: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTelegram renders the digest as Telegram HTML, one block per item.
func RenderTelegram(d news.Digest, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎵 <b>%s</b>\n%s\n", Title, KoreanDate(localTime(d.GeneratedAt, loc)))

	for i, item := range d.Items {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. <b>[%s]</b> <a href=\"%s\">%s</a>\n",
			i+1,
			html.EscapeString(item.Source),
			html.EscapeString(item.Link),
			html.EscapeString(item.Title),
		)
		if item.Summary != "" {
			b.WriteString(html.EscapeString(item.Summary))
			b.WriteString("\n")
		}
	}
	return b.String()
}
