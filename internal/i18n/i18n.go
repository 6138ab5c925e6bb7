// Package i18n registers the user-facing strings of the client in English and
// Spanish and hands out printers for them.
package i18n

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	MsgCatalogLoadError   = "Error loading the queries: %v"
	MsgRunError           = "Error running query: %v"
	MsgIntrospectionError = "Introspection error: %v"
	MsgIntrospectionDone  = "Introspection completed. Check the diagnostic output for details."
	MsgRowsFound          = "%d rows found"
	MsgNoResults          = "No results found"
	MsgLoading            = "Running query..."
	MsgPrompt             = "Select a query from the list to run it"
	MsgQueryHeading       = "Query %s:"
	MsgQueryListHeading   = "Queries"
	MsgSchemaButton       = "View DB schema"
	MsgTotalRows          = "Total rows: %d"
)

// Languages supported by the client.
var (
	English = language.English
	Spanish = language.Spanish
)

var cat = build()

func build() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(English))

	set := func(tag language.Tag, key string, msg ...catalog.Message) {
		if err := b.Set(tag, key, msg...); err != nil {
			panic(err)
		}
	}
	str := func(tag language.Tag, key, s string) {
		if err := b.SetString(tag, key, s); err != nil {
			panic(err)
		}
	}

	set(English, MsgRowsFound, plural.Selectf(1, "%d",
		"=1", "%d row found",
		"other", "%d rows found",
	))
	for _, key := range []string{
		MsgCatalogLoadError, MsgRunError, MsgIntrospectionError, MsgIntrospectionDone,
		MsgNoResults, MsgLoading, MsgPrompt, MsgQueryHeading, MsgQueryListHeading,
		MsgSchemaButton, MsgTotalRows,
	} {
		str(English, key, key)
	}

	set(Spanish, MsgRowsFound, plural.Selectf(1, "%d",
		"=1", "%d fila encontrada",
		"other", "%d filas encontradas",
	))
	str(Spanish, MsgCatalogLoadError, "Error al cargar las queries: %v")
	str(Spanish, MsgRunError, "Error ejecutando query: %v")
	str(Spanish, MsgIntrospectionError, "Error en introspección: %v")
	str(Spanish, MsgIntrospectionDone, "Introspección completada. Revisa la salida de diagnóstico para más detalles.")
	str(Spanish, MsgNoResults, "No se encontraron resultados")
	str(Spanish, MsgLoading, "Ejecutando query...")
	str(Spanish, MsgPrompt, "Selecciona una query de la lista para ejecutarla")
	str(Spanish, MsgQueryHeading, "Query %s:")
	str(Spanish, MsgQueryListHeading, "Lista de Queries")
	str(Spanish, MsgSchemaButton, "Ver Esquema de la DB")
	str(Spanish, MsgTotalRows, "Total filas: %d")

	return b
}

// Printer returns a printer for lang ("en" or "es"). Anything else prints English.
func Printer(lang string) *message.Printer {
	tag := English
	if lang == "es" {
		tag = Spanish
	}
	return message.NewPrinter(tag, message.Catalog(cat))
}
