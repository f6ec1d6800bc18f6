package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/services"
)

var errUsage = errors.New("invalid arguments")

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "listings":
		return a.listings(ctx, args)
	case "listing":
		return a.listing(ctx, args)
	case "categories":
		return a.listCategories(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "me":
		return a.me(ctx, args)
	case "refresh":
		return a.session.RefreshSession(ctx)
	case "bookings":
		return a.bookings(ctx)
	case "book":
		return a.book(ctx, args)
	case "unlock":
		return a.unlock(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) listings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listings", flag.ContinueOnError)
	var filters domain.ListingFilters
	fs.StringVar(&filters.SearchTerm, "q", "", "search term")
	fs.StringVar(&filters.Category, "category", "", "category id")
	fs.StringVar(&filters.University, "university", "", "university acronym")
	fs.IntVar(&filters.Guests, "guests", 0, "number of guests")
	fs.Float64Var(&filters.PriceMin, "min", 0, "minimum price per night")
	fs.Float64Var(&filters.PriceMax, "max", 0, "maximum price per night")
	pages := fs.Int("pages", 1, "pages to fetch")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	feed := services.NewListingController(ctx, a.api, filters, a.cfg.PageSize, a.logger.Named("listings"))
	defer feed.Close()

	for i := 1; i < *pages; i++ {
		if err := feed.LoadMore(ctx); err != nil {
			break
		}
	}

	state := feed.State()
	if state.Error != "" {
		return errors.New(state.Error)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE/NIGHT\tRATING\tUNIVERSITY")
	for _, l := range state.Listings {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.1f\t%s\n", l.ID, l.Title, l.PricePerNight, l.Rating, l.University.Acronym)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if state.HasMore {
		fmt.Printf("\nmore results available, use -pages %d\n", state.Page)
	}
	return nil
}

func (a *app) listing(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	detail := services.NewListingDetailController(ctx, a.api, args[0], a.logger.Named("listing"))
	defer detail.Close()

	state := detail.State()
	if state.Error != "" {
		return errors.New(state.Error)
	}
	l := state.Listing
	if l == nil {
		return domain.ErrNotFound
	}

	fmt.Printf("%s\n%s\n\n", l.Title, l.Address)
	fmt.Printf("R$ %.2f / night  |  %d guests  %d bedrooms  %d beds  %d baths\n", l.PricePerNight, l.Guests, l.Bedrooms, l.Beds, l.Baths)
	fmt.Printf("rating %.1f (%d reviews)  host %s  near %s\n", l.Rating, l.Reviews, l.Host.Name, l.University.Name)
	if !l.IsAvailable {
		fmt.Println("currently unavailable")
	}
	fmt.Printf("\n%s\n", l.Description)
	for _, am := range l.Amenities {
		fmt.Printf("  - %s\n", am.Name)
	}
	return nil
}

func (a *app) listCategories(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ContinueOnError)
	refresh := fs.Bool("refresh", false, "drop the cached taxonomy first")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *refresh {
		if err := a.cache.Invalidate(ctx); err != nil {
			return err
		}
	}

	state := services.NewCategoryController(ctx, a.categories, a.logger.Named("categories")).State()
	if state.Error != "" {
		return errors.New(state.Error)
	}
	for _, c := range state.Categories {
		fmt.Printf("%-16s %s\n", c.ID, c.Label)
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return errUsage
	}

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	return a.printUser()
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *name == "" || *email == "" || *password == "" {
		return errUsage
	}

	if err := a.session.Register(ctx, *name, *email, *password); err != nil {
		return err
	}
	if a.session.IsAuthenticated() {
		return a.printUser()
	}
	return nil
}

func (a *app) me(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("me", flag.ContinueOnError)
	name := fs.String("name", "", "new display name")
	avatar := fs.String("avatar", "", "new avatar url")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if !a.session.IsAuthenticated() {
		return domain.ErrNoSession
	}

	var update domain.ProfileUpdate
	if *name != "" {
		update.Name = name
	}
	if *avatar != "" {
		update.AvatarURL = avatar
	}
	if update.Name != nil || update.AvatarURL != nil {
		if _, err := a.session.UpdateProfile(ctx, update); err != nil {
			return err
		}
	}

	return a.printUser()
}

func (a *app) printUser() error {
	state := a.session.State()
	if state.User == nil {
		return domain.ErrNoSession
	}
	fmt.Printf("signed in as %s <%s>\n", state.User.Name, state.User.Email)
	if state.Session != nil && state.Session.ExpiresAt != 0 {
		fmt.Printf("session valid until %s\n", state.Session.Expiry().Format(time.RFC1123))
	}
	return nil
}

func (a *app) bookings(ctx context.Context) error {
	if !a.session.IsAuthenticated() {
		return domain.ErrNoSession
	}

	trips := services.NewBookingController(ctx, a.api, a.logger.Named("bookings"))
	defer trips.Close()

	state := trips.State()
	if state.Error != "" {
		return errors.New(state.Error)
	}
	if len(state.Bookings) == 0 {
		fmt.Println("no bookings yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLISTING\tCHECK-IN\tCHECK-OUT\tTOTAL\tSTATUS")
	for _, b := range state.Bookings {
		title := b.ListingID
		if b.Listing != nil && b.Listing.Title != "" {
			title = b.Listing.Title
		}
		status := string(b.Status)
		if !b.IsActive() {
			status += " (inactive)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n", b.ID, title, b.CheckInDate, b.CheckOutDate, b.TotalPrice, status)
	}
	return w.Flush()
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	var req domain.BookingRequest
	fs.StringVar(&req.ListingID, "listing", "", "listing id")
	fs.StringVar(&req.CheckInDate, "in", "", "check-in date (yyyy-mm-dd)")
	fs.StringVar(&req.CheckOutDate, "out", "", "check-out date (yyyy-mm-dd)")
	fs.Float64Var(&req.TotalPrice, "price", 0, "total price")
	fs.IntVar(&req.Guests, "guests", 1, "number of guests")
	if err := fs.Parse(args); err != nil || req.ListingID == "" || req.CheckInDate == "" || req.CheckOutDate == "" {
		return errUsage
	}

	if !a.session.IsAuthenticated() {
		return domain.ErrNoSession
	}

	trips := services.NewBookingController(ctx, a.api, a.logger.Named("bookings"))
	defer trips.Close()

	booking, err := trips.Create(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("booking %s is %s\n", booking.ID, booking.Status)
	return nil
}

func (a *app) unlock(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if !a.session.IsAuthenticated() {
		return domain.ErrNoSession
	}

	trips := services.NewBookingController(ctx, a.api, a.logger.Named("bookings"))
	defer trips.Close()

	if err := trips.Unlock(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("door unlocked")
	return nil
}

// watch keeps the session fresh until the process is interrupted or the
// session is lost.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	interval := fs.Duration("interval", 30*time.Second, "how often to check the session")
	margin := fs.Duration("margin", 2*time.Minute, "refresh when the token expires within this window")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if !a.session.IsAuthenticated() {
		return domain.ErrNoSession
	}

	a.session.RunAutoRefresh(ctx, *interval, *margin)

	if a.session.IsAuthenticated() {
		return nil
	}
	return domain.ErrNoSession
}
