// =============================================================================
// ifirma client - Invoice Translation Tables
// =============================================================================
//
// This module holds the hand-authored translation tables between the domain
// invoice attributes and the ifirma wire fields, and the two payment variants
// derived from them.
//
// PAYMENT CONVENTIONS:
//   ifirma exposes two mutually exclusive ways of reporting payment:
//
//   - On-document payment (domestic invoices):
//       paid_on_document + payment_type, no payment_receive_date
//   - Payment-received date (cash-on-delivery invoices):
//       payment_receive_date, no paid_on_document / payment_type
//
//   The base schema carries all three keys; each variant removes the keys of
//   the other convention from a private copy.
//
// =============================================================================

package invoice

import (
	"fmt"
	"sync"

	"github.com/ginjaninja78/ifirma-client/internal/converter"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

// =============================================================================
// LOOKUP TABLES
// =============================================================================

var (
	calculationBasis = map[string]string{
		"net":   "NET",
		"gross": "BRT",
	}

	saleDateFormats = map[string]string{
		"daily":   "DZN",
		"monthly": "MSC",
	}

	paymentTypes = map[string]string{
		"wire":        "PRZ",
		"cash":        "GTK",
		"offset":      "KOM",
		"on_delivery": "POB",
		"dotpay":      "DOT",
		"paypal":      "PAL",
		"electronic":  "ELE",
		"card":        "KAR",
		"payu":        "ALG",
		"cheque":      "CZK",
	}

	domesticInvoiceTypes = map[string]string{
		"country":  "SPRZ",
		"building": "BUD",
		"imprest":  "ZAL",
	}

	vatTypes = map[string]string{
		"percent": "PRC",
		"exempt":  "ZW",
	}
)

// =============================================================================
// BASE SCHEMA
// =============================================================================

var (
	baseOnce   sync.Once
	baseSchema converter.Schema
)

// BaseSchema returns a private copy of the full invoice schema, including
// all three payment keys.
func BaseSchema() converter.Schema {
	return base().Clone()
}

// base builds the shared table once. It must never be handed out.
func base() converter.Schema {
	baseOnce.Do(func() {
		baseSchema = buildBaseSchema()
	})
	return baseSchema
}

func buildBaseSchema() converter.Schema {
	leaf := func(wire string) converter.Field { return converter.Leaf{Wire: wire} }
	date := func(wire string) converter.Field {
		return converter.Leaf{Wire: wire, Transform: converter.FormatDate}
	}
	lookup := func(wire, name string, table map[string]string) converter.Field {
		return converter.Leaf{Wire: wire, Transform: converter.NewLookup(name, table)}
	}

	return converter.Schema{
		"paid":                 leaf("Zaplacono"),
		"paid_on_document":     leaf("ZaplaconoNaDokumencie"),
		"type":                 lookup("LiczOd", "type", calculationBasis),
		"account_no":           converter.Leaf{Wire: "NumerKontaBankowego", Transform: converter.StripWhitespace},
		"issue_date":           date("DataWystawienia"),
		"issue_city":           leaf("MiejsceWystawienia"),
		"issue_address":        leaf("MiejsceWystawienia"),
		"sale_date":            date("DataSprzedazy"),
		"sale_date_format":     lookup("FormatDatySprzedazy", "sale_date_format", saleDateFormats),
		"due_date":             date("TerminPlatnosci"),
		"payment_type":         lookup("SposobZaplaty", "payment_type", paymentTypes),
		"payment_receive_date": date("DataOtrzymaniaZaplaty"),
		"serial_name":          leaf("NazwaSeriiNumeracji"),
		"template_name":        leaf("NazwaSzablonu"),
		"designation_type":     leaf("RodzajPodpisuOdbiorcy"),
		"customer_signature":   leaf("PodpisOdbiorcy"),
		"issuer_signature":     leaf("PodpisWystawcy"),
		"comments":             leaf("Uwagi"),
		"gios":                 leaf("WidocznyNumerGios"),
		"number":               leaf("Numer"),
		"customer_id":          leaf("IdentyfikatorKontrahenta"),
		"customer_eu_preffix":  leaf("PrefiksUEKontrahenta"),
		"customer_nip":         leaf("NIPKontrahenta"),
		"invoice_type":         lookup("TypFakturyKrajowej", "invoice_type", domesticInvoiceTypes),
		"order_number":         leaf("NumerZamowienia"),

		"customer": converter.Object{Wire: "Kontrahent", Fields: converter.Schema{
			"id":              leaf("Identyfikator"),
			"name":            leaf("Nazwa"),
			"name2":           leaf("Nazwa2"),
			"eu_preffix":      leaf("PrefiksUE"),
			"nip":             leaf("NIP"),
			"street":          leaf("Ulica"),
			"zipcode":         leaf("KodPocztowy"),
			"city":            leaf("Miejscowosc"),
			"country":         leaf("Kraj"),
			"email":           leaf("Email"),
			"phone":           leaf("Telefon"),
			"phisical_person": leaf("OsobaFizyczna"),
			"is_customer":     leaf("JestOdbiorca"),
			"is_supplier":     leaf("JestDostawca"),
		}},

		"items": converter.Array{Wire: "Pozycje", Fields: converter.Schema{
			"vat_rate": converter.Leaf{Wire: "StawkaVat", Transform: converter.Percent},
			"quantity": leaf("Ilosc"),
			"price":    leaf("CenaJednostkowa"),
			"name":     leaf("NazwaPelna"),
			"unit":     leaf("Jednostka"),
			"pkwiu":    leaf("PKWiU"),
			"vat_type": lookup("TypStawkiVat", "vat_type", vatTypes),
			"discount": leaf("Rabat"),
		}},
	}
}

// =============================================================================
// VARIANTS
// =============================================================================

// OnDocumentPayment keeps paid_on_document and payment_type and drops
// payment_receive_date.
var OnDocumentPayment = []converter.Override{
	converter.Remove("payment_receive_date"),
}

// PaymentReceivedDate keeps payment_receive_date and drops paid_on_document
// and payment_type.
var PaymentReceivedDate = []converter.Override{
	converter.Remove("paid_on_document"),
	converter.Remove("payment_type"),
}

// SchemaFor returns a freshly owned schema variant for kind.
func SchemaFor(kind types.DocumentKind) (converter.Schema, error) {
	switch kind {
	case types.KindDomestic:
		return converter.VariantFor(base(), OnDocumentPayment...), nil
	case types.KindCashOnDelivery:
		return converter.VariantFor(base(), PaymentReceivedDate...), nil
	default:
		return nil, fmt.Errorf("unsupported document kind %s", kind)
	}
}
