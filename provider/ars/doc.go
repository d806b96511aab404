// Package ars provides the Banco de la Nación Argentina (BNA)
// ARS/USD sell rate sources.
//
// # Sources
//
// ## Current value
//
// Source: "bna_divisas_valorhoy"
// URL: https://www.bna.com.ar/Cotizador/MonedasHistorico
//
// Scrapes the latest published quote. The page carries a "Fecha: D/M/YYYY"
// marker and one or more tables; the sell rate is the third cell of the first
// row holding the currency label. The date reported by the page is kept as-is,
// it is not guaranteed to be "yesterday".
//
// ## Historical lookup
//
// Source: "bna_divisas_historico"
// URL: https://www.bna.com.ar/Cotizador/HistoricoPrincipales?fecha=DD/MM/YYYY&filtroDolar=1&id=monedas
//
// Scrapes the quote for an arbitrary past date. A row qualifies when it holds
// the currency label and its fourth cell contains the target date in any of
// the day/month padding variants, the ISO form or the query form.
//
// Both pages use the Argentine number format ("1.292,5000").
package ars
