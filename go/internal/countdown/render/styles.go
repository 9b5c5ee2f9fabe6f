package render

import (
	"net/http"
)

// StylesPath is where RegisterStyles serves the stylesheet.
const StylesPath = "/countdown/styles.css"

// Stylesheet is the default widget styling. Sites override it with their own rules.
const Stylesheet = `.countdown-timer {
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Oxygen, Ubuntu, Cantarell, "Open Sans", "Helvetica Neue", sans-serif;
  padding: 1rem;
  border-radius: 4px;
  margin: 1rem 0;
}

.countdown-timer__content {
  display: flex;
  justify-content: center;
  flex-wrap: wrap;
  gap: 1rem;
}

.countdown-timer__item {
  display: flex;
  flex-direction: column;
  align-items: center;
  min-width: 60px;
}

.countdown-timer__value {
  font-size: 1.5rem;
  font-weight: bold;
}

.countdown-timer__label {
  font-size: 0.8rem;
  text-transform: uppercase;
  margin-top: 0.25rem;
}

.countdown-timer__complete {
  text-align: center;
  font-weight: bold;
}

.countdown-error {
  color: #b32d2e;
}

@media (max-width: 480px) {
  .countdown-timer__content {
    gap: 0.5rem;
  }

  .countdown-timer__item {
    min-width: 50px;
  }

  .countdown-timer__value {
    font-size: 1.2rem;
  }

  .countdown-timer__label {
    font-size: 0.7rem;
  }
}
`

// StyleLink is the tag a page includes to pick up the registered stylesheet.
const StyleLink = `<link rel="stylesheet" href="` + StylesPath + `">`

// RegisterStyles serves the stylesheet on mux. The embedding layer calls it
// once while wiring its routes; a second call on the same mux panics.
func RegisterStyles(mux *http.ServeMux) {
	mux.HandleFunc(StylesPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write([]byte(Stylesheet))
	})
}
