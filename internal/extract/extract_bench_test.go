package extract

import (
	"strings"
	"testing"
)

// BenchmarkFromHTML measures extraction on small, medium and large pages.
func BenchmarkFromHTML(b *testing.B) {
	small := []byte("<html><head><title>t</title></head><body><main><p>a</p></main></body></html>")
	medium := makeHTML(50, 60)
	large := makeHTML(200, 200)

	b.Run("small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = FromHTML(small)
		}
	})
	b.Run("medium", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = FromHTML(medium)
		}
	})
	b.Run("large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = FromHTML(large)
		}
	})
}

func BenchmarkStripLinks(b *testing.B) {
	text := strings.Repeat("See [the docs](https://example.com/docs) and ![fig](f.png). ", 500)
	for i := 0; i < b.N; i++ {
		_ = StripLinks(text)
	}
}

func makeHTML(paras int, itemsPerList int) []byte {
	builder := new(strings.Builder)
	builder.WriteString("<html><head><title>demo</title></head><body><nav>menu</nav><main>")
	for i := 0; i < paras; i++ {
		builder.WriteString("<h2>Heading</h2><p>")
		builder.WriteString(sampleText)
		builder.WriteString(` <a href="https://example.com">link</a></p>`)
	}
	builder.WriteString("<ul>")
	for i := 0; i < itemsPerList; i++ {
		builder.WriteString("<li>")
		builder.WriteString(sampleText)
		builder.WriteString("</li>")
	}
	builder.WriteString("</ul></main></body></html>")
	return []byte(builder.String())
}

const sampleText = "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua."
