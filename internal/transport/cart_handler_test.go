package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"bakery-storefront/internal/domain"
)

func addItem(a *testApp, session, code string) CartView {
	w := a.do(http.MethodPost, "/api/cart/items", fmt.Sprintf(`{"code":%q}`, code), withSession(session))
	var view CartView
	if w.Code == http.StatusOK {
		_ = json.Unmarshal(w.Body.Bytes(), &view)
	}
	return view
}

func TestAddItemStartsSession(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/cart/items", `{"code":"TC001"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	session := w.Header().Get("X-Session-ID")
	if session == "" {
		t.Fatal("no session id echoed back")
	}

	view := decode[CartView](t, w)
	if len(view.Items) != 1 || view.Items[0].UnitPrice != 36000 || view.Items[0].Quantity != 1 {
		t.Fatalf("items = %+v", view.Items)
	}
	if view.Total != 36000 || view.TotalLabel != "$36.000" || view.Units != 1 {
		t.Errorf("view = %+v", view)
	}

	again := decode[CartView](t, app.do(http.MethodGet, "/api/cart", "", withSession(session)))
	if again.Total != 36000 {
		t.Errorf("cart not kept for session: %+v", again)
	}
	other := decode[CartView](t, app.do(http.MethodGet, "/api/cart", "", withSession("someone-else")))
	if len(other.Items) != 0 {
		t.Errorf("carts leaked between sessions: %+v", other)
	}
}

func TestAddItemPurchaseLimit(t *testing.T) {
	app := newTestApp(t)
	const session = "shopper-limit"

	for i := 0; i < domain.MaxLineQuantity; i++ {
		if view := addItem(app, session, "PI002"); view.LimitReached {
			t.Fatalf("limit reached on add %d", i+1)
		}
	}

	view := addItem(app, session, "PI002")
	if !view.LimitReached {
		t.Error("sixth add did not report the limit")
	}
	if view.Items[0].Quantity != domain.MaxLineQuantity || view.Total != 27500 {
		t.Errorf("cart = %+v", view)
	}
}

func TestAddItemErrors(t *testing.T) {
	app := newTestApp(t)

	if w := app.do(http.MethodPost, "/api/cart/items", `{"code":"NOPE"}`, withSession("shopper-errors")); w.Code != http.StatusNotFound {
		t.Errorf("unknown product status = %d, want 404", w.Code)
	}
	if w := app.do(http.MethodPost, "/api/cart/items", `{}`, withSession("shopper-errors")); w.Code != http.StatusBadRequest {
		t.Errorf("missing code status = %d, want 400", w.Code)
	}
	if w := app.do(http.MethodPost, "/api/cart/items", ``, withSession("shopper-errors")); w.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d, want 400", w.Code)
	}

	app.do(http.MethodPost, "/api/admin/products/TE002/status", `{"status":"soldOut"}`, withToken(t, "1", "admin"))
	w := app.do(http.MethodPost, "/api/cart/items", `{"code":"TE002"}`, withSession("shopper-errors"))
	if w.Code != http.StatusConflict {
		t.Fatalf("sold out status = %d, want 409", w.Code)
	}
	if msg := errorMessage(t, w); msg != "product is not available" {
		t.Errorf("message = %q", msg)
	}
}

func TestCartLineSteps(t *testing.T) {
	app := newTestApp(t)
	const session = "shopper-steps"
	addItem(app, session, "PT001")
	addItem(app, session, "PG001")

	view := decode[CartView](t, app.do(http.MethodPost, "/api/cart/items/PT001/increment", "", withSession(session)))
	if view.Items[0].Quantity != 2 || view.Total != 2*3000+3520 {
		t.Fatalf("after increment = %+v", view)
	}

	app.do(http.MethodPost, "/api/cart/items/PT001/decrement", "", withSession(session))
	view = decode[CartView](t, app.do(http.MethodPost, "/api/cart/items/PT001/decrement", "", withSession(session)))
	if view.Items[0].Quantity != 1 {
		t.Errorf("decrement went below one: %+v", view.Items[0])
	}

	view = decode[CartView](t, app.do(http.MethodPost, "/api/cart/items/XX999/increment", "", withSession(session)))
	if view.Units != 2 {
		t.Errorf("unknown code changed the cart: %+v", view)
	}

	view = decode[CartView](t, app.do(http.MethodDelete, "/api/cart/items/PT001", "", withSession(session)))
	if len(view.Items) != 1 || view.Items[0].ProductCode != "PG001" || view.Total != 3520 {
		t.Errorf("after remove = %+v", view)
	}
}

func TestClearCartRequiresConfirmation(t *testing.T) {
	app := newTestApp(t)
	const session = "shopper-clear"
	addItem(app, session, "TT001")

	if w := app.do(http.MethodDelete, "/api/cart", "", withSession(session)); w.Code != http.StatusPreconditionRequired {
		t.Fatalf("unconfirmed status = %d, want 428", w.Code)
	}
	if view := decode[CartView](t, app.do(http.MethodGet, "/api/cart", "", withSession(session))); len(view.Items) != 1 {
		t.Fatalf("unconfirmed clear emptied the cart: %+v", view)
	}

	w := app.do(http.MethodDelete, "/api/cart?confirm=true", "", withSession(session))
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed status = %d", w.Code)
	}
	if view := decode[CartView](t, w); len(view.Items) != 0 || view.Total != 0 || view.TotalLabel != "$0" {
		t.Errorf("cart after clear = %+v", view)
	}
}

// Feature: storefront-cart-api, Property 1: The cart view total matches its lines
func TestProperty_CartViewTotals(t *testing.T) {
	codes := []string{"TC001", "TT002", "PI001", "PI002", "PT001", "PG001", "TE001"}

	properties := gopter.NewProperties(nil)

	properties.Property("total and units are consistent after any adds", prop.ForAll(
		func(picks []int) bool {
			app := newTestApp(t)
			const session = "shopper-property"
			for _, i := range picks {
				addItem(app, session, codes[i])
			}

			w := app.do(http.MethodGet, "/api/cart", "", withSession(session))
			var view CartView
			if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
				return false
			}

			var total int64
			units := 0
			for _, line := range view.Items {
				if line.Quantity < domain.MinLineQuantity || line.Quantity > domain.MaxLineQuantity {
					return false
				}
				total += line.UnitPrice * int64(line.Quantity)
				units += line.Quantity
			}
			return view.Total == total && view.Units == units
		},
		gen.SliceOf(gen.IntRange(0, len(codes)-1)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestMergeCartOnSignIn(t *testing.T) {
	app := newTestApp(t)
	const session = "shopper-before-login"
	addItem(app, session, "TC001")
	addItem(app, session, "PI001")
	auth := withToken(t, "21", "")

	// signing in alone does not expose the anonymous cart
	view := decode[CartView](t, app.do(http.MethodGet, "/api/cart", "", withSession(session), auth))
	if len(view.Items) != 0 {
		t.Fatalf("account cart picked up the anonymous cart without a merge: %+v", view)
	}

	w := app.do(http.MethodPost, "/api/cart/merge", "", withSession(session), auth)
	if w.Code != http.StatusOK {
		t.Fatalf("merge status = %d: %s", w.Code, w.Body.String())
	}
	merged := decode[CartView](t, w)
	if merged.Units != 2 || merged.Total != 36000+4500 {
		t.Errorf("merged cart = %+v", merged)
	}

	again := decode[CartView](t, app.do(http.MethodGet, "/api/cart", "", auth))
	if again.Units != 2 {
		t.Errorf("account cart after merge = %+v", again)
	}
	if anon := decode[CartView](t, app.do(http.MethodGet, "/api/cart", "", withSession(session))); len(anon.Items) != 0 {
		t.Errorf("anonymous cart kept after merge: %+v", anon)
	}
}

func TestMergeCartRequiresLogin(t *testing.T) {
	app := newTestApp(t)
	addItem(app, "shopper-anonymous", "TC001")

	w := app.do(http.MethodPost, "/api/cart/merge", "", withSession("shopper-anonymous"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestMergeCartWithoutAnonymousSession(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/cart/merge", "", withToken(t, "21", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if view := decode[CartView](t, w); len(view.Items) != 0 {
		t.Errorf("view = %+v", view)
	}
}
