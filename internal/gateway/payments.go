// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package gateway

import (
	"net/http"
)

// RedirectPayments sends /payments?token=... to /auto-payment with the same
// query, as payment providers still link to the old page. Other requests pass through.
func RedirectPayments(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		path := request.URL.Path
		if (path != "/payments" && path != "/payments/") || request.URL.Query().Get("token") == "" {
			next.ServeHTTP(writer, request)
			return
		}

		target := *request.URL
		target.Path = "/auto-payment"
		target.RawPath = ""
		http.Redirect(writer, request, target.RequestURI(), http.StatusTemporaryRedirect)
	})
}
