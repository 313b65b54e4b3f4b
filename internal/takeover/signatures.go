package takeover

import (
	"fmt"
	"strings"

	sharederrors "github.com/jackalstv/eon-security-audit/internal/shared/errors"
)

// ServiceSignature describes one third-party hosting provider known to be
// susceptible to subdomain takeover.
//
// CNAMEMarkers are substrings that, when found in a resolved CNAME target,
// indicate the subdomain is hosted on this service. BodyMarkers are
// substrings of the service's canonical "resource not claimed" error page;
// an empty BodyMarkers list means orphan state cannot be confirmed from
// page content (e.g. mail-delivery services) and matches are only ever
// reported as at-risk.
type ServiceSignature struct {
	Service      string
	CNAMEMarkers []string
	BodyMarkers  []string
}

// serviceSignatures is the curated takeover signature table, based on
// https://github.com/EdOverflow/can-i-take-over-xyz.
//
// The table is an ordered slice, not a map: matching iterates in declared
// order and stops at the first hit, so order is part of the contract.
// validateSignatures additionally guarantees no two entries can ever match
// the same CNAME target.
var serviceSignatures = []ServiceSignature{
	{
		Service:      "GitHub Pages",
		CNAMEMarkers: []string{"github.io"},
		BodyMarkers:  []string{"There isn't a GitHub Pages site here"},
	},
	{
		Service:      "Heroku",
		CNAMEMarkers: []string{"herokuapp.com", "herokudns.com"},
		BodyMarkers:  []string{"No such app", "herokucdn.com/error-pages/no-such-app"},
	},
	{
		Service:      "Shopify",
		CNAMEMarkers: []string{"myshopify.com", "shopify.com"},
		BodyMarkers:  []string{"Sorry, this shop is currently unavailable"},
	},
	{
		Service:      "Fastly",
		CNAMEMarkers: []string{"fastly.net"},
		BodyMarkers:  []string{"Fastly error: unknown domain"},
	},
	{
		Service:      "Pantheon",
		CNAMEMarkers: []string{"pantheonsite.io"},
		BodyMarkers:  []string{"The gods are wise", "404 error unknown site"},
	},
	{
		Service:      "WordPress.com",
		CNAMEMarkers: []string{"wordpress.com"},
		BodyMarkers:  []string{"Do you want to register"},
	},
	{
		Service:      "Ghost",
		CNAMEMarkers: []string{"ghost.io"},
		BodyMarkers:  []string{"The thing you were looking for is no longer here"},
	},
	{
		Service:      "Surge.sh",
		CNAMEMarkers: []string{"surge.sh"},
		BodyMarkers:  []string{"project not found"},
	},
	{
		Service:      "Microsoft Azure",
		CNAMEMarkers: []string{"azurewebsites.net", "cloudapp.net", "trafficmanager.net", "blob.core.windows.net"},
		BodyMarkers:  []string{"404 Web Site not found"},
	},
	{
		Service:      "Amazon S3",
		CNAMEMarkers: []string{"s3.amazonaws.com", "s3-website"},
		BodyMarkers:  []string{"NoSuchBucket", "The specified bucket does not exist"},
	},
	{
		Service:      "Unbounce",
		CNAMEMarkers: []string{"unbouncepages.com"},
		BodyMarkers:  []string{"The requested URL was not found on this server"},
	},
	{
		Service:      "SendGrid",
		CNAMEMarkers: []string{"sendgrid.net"},
		BodyMarkers:  []string{},
	},
	{
		Service:      "HubSpot",
		CNAMEMarkers: []string{"hubspot.net", "hs-sites.com"},
		BodyMarkers:  []string{"does not exist in our system"},
	},
	{
		Service:      "Zendesk",
		CNAMEMarkers: []string{"zendesk.com"},
		BodyMarkers:  []string{"Help Center Closed"},
	},
}

// Signatures returns the takeover signature table. It panics if the table
// is ambiguous; a table where two services could claim the same CNAME would
// make matching depend silently on iteration order.
func Signatures() []ServiceSignature {
	if err := validateSignatures(serviceSignatures); err != nil {
		panic(err)
	}
	return serviceSignatures
}

// validateSignatures rejects tables where any two entries carry CNAME
// markers that contain one another. Substring containment is checked in
// both directions because matching itself is a containment test.
func validateSignatures(sigs []ServiceSignature) error {
	for i, a := range sigs {
		for _, b := range sigs[i+1:] {
			for _, ma := range a.CNAMEMarkers {
				for _, mb := range b.CNAMEMarkers {
					la, lb := strings.ToLower(ma), strings.ToLower(mb)
					if strings.Contains(la, lb) || strings.Contains(lb, la) {
						return fmt.Errorf("%w: %q (%s) overlaps %q (%s)",
							sharederrors.ErrAmbiguousSignature, ma, a.Service, mb, b.Service)
					}
				}
			}
		}
	}
	return nil
}

// matchSignature classifies a resolved CNAME target against the table.
// Matching is a case-insensitive substring test in table order; the first
// hit wins. A miss returns ok=false.
func matchSignature(cname string, sigs []ServiceSignature) (ServiceSignature, bool) {
	target := strings.ToLower(cname)
	for _, sig := range sigs {
		for _, marker := range sig.CNAMEMarkers {
			if strings.Contains(target, strings.ToLower(marker)) {
				return sig, true
			}
		}
	}
	return ServiceSignature{}, false
}
