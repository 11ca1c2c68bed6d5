package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/example/ceremic-storefront/internal/app"
	"github.com/example/ceremic-storefront/internal/auth"
	"github.com/example/ceremic-storefront/internal/cart"
	"github.com/example/ceremic-storefront/internal/catalog"
	"github.com/example/ceremic-storefront/internal/command"
	"github.com/example/ceremic-storefront/internal/eventlog"
	"github.com/example/ceremic-storefront/internal/order"
	"github.com/example/ceremic-storefront/internal/query"
	"github.com/example/ceremic-storefront/internal/route"
	"github.com/example/ceremic-storefront/internal/session"
)

const defaultLinkBase = "https://ceremic.example/collections"

var errUsage = errors.New("usage")

type cli struct {
	app    *app.App
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: storefront <command> [arguments]

catalog:
  products [-new]            list the collection
  product <id>               show one product
  link [-base url] <id>      print a shareable product link
  open <url>                 show the view a storefront URL points at

cart:
  add [-six] <id>            add one unit, or six
  inc <id> | dec <id>        change a quantity by one
  rm <id>                    remove a product
  cart                       show the cart and its summary

orders:
  order                      place an order for the cart
  orders                     show order history

account:
  signup -username .. -phone .. -email .. -address .. -pincode ..
  login <phone>
  logout
  whoami

  shell                      read commands from stdin, one per line
`)
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]
	switch name {
	case "products":
		return c.products(ctx, rest)
	case "product":
		return c.product(ctx, rest)
	case "link":
		return c.link(rest)
	case "open":
		return c.open(ctx, rest)
	case "add":
		return c.add(ctx, rest)
	case "inc", "dec", "rm":
		return c.adjust(ctx, name, rest)
	case "cart":
		return c.cart(ctx)
	case "order":
		return c.order(ctx)
	case "orders":
		return c.orders(ctx)
	case "signup":
		return c.signup(ctx, rest)
	case "login":
		return c.login(ctx, rest)
	case "logout":
		if err := c.app.Commands.Logout(ctx, command.Logout{}); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Logged out")
		return nil
	case "whoami":
		return c.whoami(ctx)
	case "shell":
		return c.shell(ctx)
	case "help", "-h", "--help":
		usage(c.out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

// Catalog

func (c *cli) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	newOnly := fs.Bool("new", false, "only new arrivals")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	c.track(ctx, eventlog.ActionVisit, "COLLECTIONS_PAGE", eventlog.PageCollections)
	var (
		products []catalog.Product
		err      error
	)
	if *newOnly {
		c.track(ctx, eventlog.ActionNewArrivals, "NEW_ARRIVALS_TAB", eventlog.PageCollections)
		products, err = c.app.Queries.ListNewArrivals(ctx)
	} else {
		c.track(ctx, eventlog.ActionAllProducts, "ALL_PRODUCTS_TAB", eventlog.PageCollections)
		products, err = c.app.Queries.ListProducts(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tRATING")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f (%d)\n", p.ID, p.Name, price(p), p.Rating.Average, p.Rating.Count)
	}
	return tw.Flush()
}

func (c *cli) product(ctx context.Context, args []string) error {
	id, err := productArg(args)
	if err != nil {
		return err
	}
	c.track(ctx, eventlog.ActionView, strconv.FormatInt(id, 10), eventlog.PageProduct)

	p, err := c.app.Queries.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%s\n%s\n", p.Name, price(*p))
	if p.Rating.Count > 0 {
		fmt.Fprintf(c.out, "Rated %.1f from %d reviews\n", p.Rating.Average, p.Rating.Count)
	}
	if p.Description != "" {
		fmt.Fprintf(c.out, "\n%s\n", p.Description)
	}
	if len(p.Features) > 0 {
		fmt.Fprintln(c.out, "\nFeatures:")
		for _, f := range p.Features {
			fmt.Fprintf(c.out, "  - %s\n", f)
		}
	}
	if len(p.Specifications) > 0 {
		fmt.Fprintln(c.out, "\nSpecifications:")
		for _, s := range p.Specifications {
			fmt.Fprintf(c.out, "  %s: %s\n", s.Label, s.Value)
		}
	}
	for _, r := range p.Reviews {
		fmt.Fprintf(c.out, "\n%s (%.0f/5): %s\n", r.Name, r.Rating, r.Comment)
	}
	if qty := c.app.Cart.Quantity(p.ID); qty > 0 {
		fmt.Fprintf(c.out, "\nIn cart: %d\n", qty)
	}
	return nil
}

func (c *cli) link(args []string) error {
	fs := flag.NewFlagSet("link", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	base := fs.String("base", defaultLinkBase, "page the link points at")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	id, err := productArg(fs.Args())
	if err != nil {
		return err
	}
	link, err := route.ProductLink(*base, id)
	if err != nil {
		return fmt.Errorf("%w: invalid base url: %w", errUsage, err)
	}
	fmt.Fprintln(c.out, link)
	return nil
}

func (c *cli) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: open <url>", errUsage)
	}
	view := route.Parse(args[0])
	switch view.Page {
	case route.PageProduct:
		return c.product(ctx, []string{strconv.FormatInt(view.ProductID, 10)})
	case route.PageCart:
		return c.cart(ctx)
	case route.PageOrders:
		return c.orders(ctx)
	case route.PageAccount, route.PageLogin:
		return c.whoami(ctx)
	case route.PageThankYou:
		fmt.Fprintln(c.out, "Thank you for your order!")
		return nil
	default:
		return c.products(ctx, nil)
	}
}

// Cart

func (c *cli) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	six := fs.Bool("six", false, "add six units")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	id, err := productArg(fs.Args())
	if err != nil {
		return err
	}
	if err := c.idle(id); err != nil {
		return err
	}
	p, err := c.app.Queries.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	qty, err := c.app.Commands.AddToCart(ctx, command.AddToCart{Product: *p, Bulk: *six})
	if errors.Is(err, cart.ErrAuthRequired) {
		fmt.Fprintf(c.out, "%s will be added to your cart after you login\n", p.Name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s x%d in cart\n", p.Name, qty)
	return nil
}

func (c *cli) adjust(ctx context.Context, name string, args []string) error {
	id, err := productArg(args)
	if err != nil {
		return err
	}
	if err := c.idle(id); err != nil {
		return err
	}

	var qty int
	switch name {
	case "inc":
		qty, err = c.app.Commands.IncreaseQuantity(ctx, command.IncreaseQuantity{ProductID: id})
	case "dec":
		qty, err = c.app.Commands.DecreaseQuantity(ctx, command.DecreaseQuantity{ProductID: id})
	default:
		qty, err = c.app.Commands.RemoveFromCart(ctx, command.RemoveFromCart{ProductID: id})
	}
	if err != nil {
		return err
	}
	if qty <= 0 {
		fmt.Fprintf(c.out, "Removed product %d\n", id)
		return nil
	}
	fmt.Fprintf(c.out, "Product %d x%d in cart\n", id, qty)
	return nil
}

// idle refuses a new change while one for the same product is still
// waiting on the server.
func (c *cli) idle(productID int64) error {
	if c.app.Cart.Busy(productID) {
		return fmt.Errorf("product %d: %w", productID, cart.ErrOperationInFlight)
	}
	return nil
}

func (c *cli) cart(ctx context.Context) error {
	if err := c.app.Commands.LoadCart(ctx, command.LoadCart{}); err != nil {
		return err
	}
	view := c.app.Queries.Cart()
	if view.Empty() {
		fmt.Fprintln(c.out, "Your cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE")
	for _, it := range view.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", it.Product.ID, it.Product.Name, it.Quantity, price(it.Product))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := view.Summary
	fmt.Fprintf(c.out, "\nItems:    %d\n", s.TotalItems)
	fmt.Fprintf(c.out, "MRP:      ₹%s\n", s.MRP.StringFixed(0))
	fmt.Fprintf(c.out, "Savings:  ₹%s\n", s.Savings.StringFixed(0))
	fmt.Fprintln(c.out, "Shipping: FREE")
	fmt.Fprintf(c.out, "Total:    ₹%s\n", s.Total.StringFixed(0))
	return nil
}

// Orders

func (c *cli) order(ctx context.Context) error {
	res, err := c.app.Commands.PlaceOrder(ctx, command.PlaceOrder{})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Order placed (request %s)\n", res.RequestID)
	return nil
}

func (c *cli) orders(ctx context.Context) error {
	c.track(ctx, eventlog.ActionVisit, "ORDERS_PAGE", eventlog.PageOrders)
	groups, err := c.app.Queries.Orders(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(c.out, "No orders yet")
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(c.out, "%s  (%d items, ₹%s)\n", g.Label(), g.TotalItems, g.Total.StringFixed(0))
		for _, l := range g.Lines {
			fmt.Fprintf(c.out, "  %-30s x%d  ₹%s\n", l.Product.Name, l.Quantity, l.Total().StringFixed(0))
		}
	}
	return nil
}

// Account

func (c *cli) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	var form auth.SignupForm
	fs.StringVar(&form.Username, "username", "", "display name")
	fs.StringVar(&form.PhoneNumber, "phone", "", "10-digit phone number")
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.Address, "address", "", "delivery address")
	fs.StringVar(&form.Pincode, "pincode", "", "6-digit pincode")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	s, err := c.app.Commands.Signup(ctx, command.Signup{Form: form})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Welcome, %s\n", s.Username)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: login <phone>", errUsage)
	}
	s, err := c.app.Commands.Login(ctx, command.Login{PhoneNumber: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Welcome back, %s\n", s.Username)
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	s := session.Current(ctx, c.app.Sessions)
	if s == nil {
		fmt.Fprintln(c.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(c.out, "%s (%s)\n", s.Username, s.PhoneNumber)
	return nil
}

// shell keeps one process alive across commands so a product added
// while logged out is still pending when login happens.
func (c *cli) shell(ctx context.Context) error {
	unsubscribe := c.app.Cart.Subscribe(func(items []cart.Item) {
		s := cart.Summarize(items)
		fmt.Fprintf(c.out, "  cart: %d item(s), total ₹%s\n", s.TotalItems, s.Total.StringFixed(0))
	})
	defer unsubscribe()

	sc := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(c.out)
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return nil
		case "shell":
			continue
		}
		if err := c.dispatch(ctx, fields); err != nil {
			fmt.Fprintln(c.errOut, describe(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *cli) track(ctx context.Context, action, elementTag, pageName string) {
	c.app.Commands.Track(ctx, command.Track{Action: action, ElementTag: elementTag, PageName: pageName})
}

func productArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected one product id", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid product id %q", errUsage, args[0])
	}
	return id, nil
}

func price(p catalog.Product) string {
	if !p.HasDiscount {
		return fmt.Sprintf("₹%d", p.Price)
	}
	return fmt.Sprintf("₹%d (was ₹%d, %.0f%% off)", p.DiscountedPrice, p.Price, p.DiscountPercentage)
}

// describe turns err into the line shown to the shopper.
func describe(err error) string {
	var (
		ve *auth.ValidationError
		ms *auth.ModeSwitchError
	)
	switch {
	case errors.Is(err, errUsage):
		return err.Error()
	case errors.As(err, &ve), errors.As(err, &ms),
		errors.Is(err, auth.ErrLoginFailed), errors.Is(err, auth.ErrSignupFailed):
		return auth.Message(err)
	case errors.Is(err, cart.ErrAuthRequired):
		return "Please login to continue"
	case errors.Is(err, cart.ErrOperationInFlight):
		return "Please wait for the previous update to finish"
	case errors.Is(err, cart.ErrUnknownProduct):
		return "That product is not in your cart"
	case errors.Is(err, order.ErrNotLoggedIn), errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrPlacementFailed), errors.Is(err, order.ErrHistoryLoadFailed):
		return order.Message(err)
	case errors.Is(err, query.ErrProductNotFound), errors.Is(err, query.ErrCatalogUnavailable):
		return query.Message(err)
	default:
		return "Failed to load cart. Please try again."
	}
}
