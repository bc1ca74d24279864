package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/session"
)

func renderMedicine(w io.Writer, m *model.Medicine) {
	fmt.Fprintln(w, m.MedicineName)
	if m.GenericName != "" && !strings.EqualFold(m.GenericName, m.MedicineName) {
		fmt.Fprintf(w, "Generic: %s\n", m.GenericName)
	}
	if m.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", m.Category)
	}
	renderList(w, "Uses", m.Uses)
	renderList(w, "Symptoms", m.Symptoms)
	if m.HowToUse != "" {
		fmt.Fprintf(w, "\nHow to use:\n  %s\n", m.HowToUse)
	}
	renderList(w, "Warnings", m.Warnings)
	renderList(w, "Side effects", m.SideEffects)

	if len(m.Alternatives) > 0 {
		fmt.Fprintln(w, "\nAlternatives:")
		for _, alt := range m.Alternatives {
			fmt.Fprintf(w, "  - %s (%s)\n", alt.Name, alt.Kind)
		}
	}
}

func renderList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func renderScan(w io.Writer, res *model.PrescriptionScanResult) {
	if len(res.Medicines) == 0 {
		fmt.Fprintln(w, "No medicines found in the prescription.")
		return
	}
	fmt.Fprintf(w, "Found %d medicine(s): %s\n", len(res.Medicines), strings.Join(res.Names, ", "))
	for _, m := range res.Medicines {
		fmt.Fprintln(w, "\n----------------------------------------")
		renderMedicine(w, m)
	}
}

func renderPharmacies(w io.Writer, res *model.PharmacySearchResult) {
	where := res.Center.DisplayName
	if where == "" {
		where = fmt.Sprintf("%.5f, %.5f", res.Center.Lat, res.Center.Lng)
	}
	if len(res.Pharmacies) == 0 {
		fmt.Fprintf(w, "No pharmacies found within %dm of %s.\n", res.Radius, where)
		return
	}
	fmt.Fprintf(w, "%d pharmacies within %dm of %s:\n", len(res.Pharmacies), res.Radius, where)
	for i, p := range res.Pharmacies {
		fmt.Fprintf(w, "\n%d. %s\n   %s\n   %s\n", i+1, p.Name, p.Address, p.MapsURL)
	}
}

func renderStatus(w io.Writer, s *session.Session) {
	if s.LoggedIn() {
		fmt.Fprintf(w, "Logged in as %s. Unlimited scans.\n", displayName(s.User))
		return
	}
	fmt.Fprintf(w, "Not logged in. %d of %d free scans remaining.\n", s.RemainingScans(), session.AnonymousScanLimit)
}

func displayName(u *model.PublicUser) string {
	switch {
	case u == nil:
		return "user"
	case u.Name != "":
		return u.Name
	}
	return u.Email
}
