// Package main runs end-to-end scenarios against a running studio API.
//
// Scenarios cover:
//   - Health and readiness
//   - Public booking request landing in the admin list
//   - Status lifecycle up to a terminal status
//   - Optimistic appointment board create/update/delete
//   - Contact form round trip
//   - Payment intent creation (or setup_required when Stripe is absent)
//   - Dead-letter listing
//
// Usage:
//
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go [scenario-name]
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go              # runs all
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go booking      # runs one
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/inkstudio-platform/internal/appointments"
	"github.com/wolfman30/inkstudio-platform/internal/payments"
	"github.com/wolfman30/inkstudio-platform/pkg/studioclient"
)

const requestTimeout = 20 * time.Second

var (
	apiBase    string
	adminToken string
	client     *studioclient.Client
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

func signAdminToken(secret string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "e2e-runner",
		"email": "e2e@example.com",
		"role":  "admin",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
}

// postJSON calls a raw endpoint and decodes the response into out when set.
func postJSON(ctx context.Context, path string, body any, admin bool, out any) (int, error) {
	raw, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w (%s)", path, err, data)
		}
	}
	return resp.StatusCode, nil
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s+%s@e2e.example.com", prefix, uuid.NewString()[:8])
}

func newCustomer(ctx context.Context) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	status, err := postJSON(ctx, "/api/admin/customers", map[string]string{
		"name":  "E2E Client",
		"email": uniqueEmail("customer"),
	}, true, &created)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated || created.ID == "" {
		return "", fmt.Errorf("create customer returned %d", status)
	}
	return created.ID, nil
}

func scenarioHealth(t *T) {
	resp, err := http.Get(apiBase + "/health")
	if err != nil {
		t.fatalf("health: %v", err)
		return
	}
	defer resp.Body.Close()
	t.check("health returns 200", resp.StatusCode == http.StatusOK)
}

func scenarioBooking(t *T) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	email := uniqueEmail("booking")
	var submitted struct {
		Success       bool   `json:"success"`
		AppointmentID string `json:"appointment_id"`
		Status        string `json:"status"`
	}
	status, err := postJSON(ctx, "/api/bookings", map[string]any{
		"name":           "Sam Rivera",
		"email":          email,
		"preferred_date": time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"tattoo_style":   "Fine Line",
		"description":    "small botanical piece on the wrist",
	}, false, &submitted)
	if err != nil {
		t.fatalf("submit booking: %v", err)
		return
	}
	t.check("booking request accepted", status == http.StatusCreated && submitted.Success)
	t.check("booking starts SCHEDULED", submitted.Status == string(appointments.StatusScheduled))

	list, err := client.ListAppointments(ctx, studioclient.ListFilter{Query: email})
	if err != nil {
		t.fatalf("list appointments: %v", err)
		return
	}
	t.check("admin search finds exactly the booking", len(list) == 1 && list[0].ID == submitted.AppointmentID)
}

func scenarioLifecycle(t *T) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	customerID, err := newCustomer(ctx)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	appt, err := client.CreateAppointment(ctx, appointments.CreateRequest{
		CustomerID:         customerID,
		AppointmentDate:    time.Now().Add(72 * time.Hour).UTC().Truncate(time.Minute),
		Duration:           120,
		DepositAmountCents: 5000,
		TotalPriceCents:    30000,
		TattooStyle:        "Traditional",
	})
	if err != nil {
		t.fatalf("create appointment: %v", err)
		return
	}
	t.check("created as SCHEDULED", appt.Status == appointments.StatusScheduled)

	confirmed, err := client.SetAppointmentStatus(ctx, appt.ID, string(appointments.StatusConfirmed))
	t.check("SCHEDULED -> CONFIRMED allowed", err == nil && confirmed.Status == appointments.StatusConfirmed)

	completed, err := client.SetAppointmentStatus(ctx, appt.ID, string(appointments.StatusCompleted))
	t.check("CONFIRMED -> COMPLETED allowed", err == nil && completed.Status == appointments.StatusCompleted)

	_, err = client.SetAppointmentStatus(ctx, appt.ID, string(appointments.StatusScheduled))
	var apiErr *studioclient.APIError
	t.check("COMPLETED is terminal", errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest)

	t.check("cleanup", client.DeleteAppointment(ctx, appt.ID) == nil)
}

func scenarioBoard(t *T) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	customerID, err := newCustomer(ctx)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	board := studioclient.NewAppointmentBoard(client, studioclient.ListFilter{})
	if err := board.Refresh(ctx); err != nil {
		t.fatalf("refresh: %v", err)
		return
	}
	before := len(board.Items())

	created, err := board.Create(ctx, appointments.CreateRequest{
		CustomerID:      customerID,
		AppointmentDate: time.Now().Add(96 * time.Hour).UTC().Truncate(time.Minute),
		TattooStyle:     "Blackwork",
	})
	if err != nil {
		t.fatalf("board create: %v", err)
		return
	}
	t.check("board holds server id after create", len(board.Items()) == before+1 && !board.Pending(created.ID))

	_, err = board.SetStatus(ctx, created.ID, appointments.StatusCancelled)
	t.check("board status change", err == nil)

	t.check("board delete", board.Delete(ctx, created.ID) == nil && len(board.Items()) == before)
}

func scenarioContact(t *T) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	status, err := postJSON(ctx, "/api/contact", map[string]string{
		"name":    "Alex Kim",
		"email":   uniqueEmail("contact"),
		"subject": "Cover-up question",
		"message": "Can you cover an old script tattoo?",
	}, false, &created)
	if err != nil {
		t.fatalf("contact: %v", err)
		return
	}
	t.check("contact accepted", status == http.StatusCreated && created.Success && created.ID != "")
}

func scenarioPayments(t *T) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	intent, err := client.CreatePaymentIntent(ctx, payments.IntentRequest{
		Amount:      5000,
		Email:       uniqueEmail("payer"),
		PaymentType: payments.PaymentDeposit,
	}, uuid.NewString())
	var apiErr *studioclient.APIError
	if errors.As(err, &apiErr) && apiErr.SetupRequired {
		t.check("payments report setup_required without Stripe", apiErr.Status == http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		t.fatalf("create intent: %v", err)
		return
	}
	t.check("intent has client secret", intent.ClientSecret != "")
	t.check("intent id looks like stripe", strings.HasPrefix(intent.ID, "pi_"))
}

func scenarioDeadLetters(t *T) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	_, err := client.DeadNotifications(ctx, 10)
	t.check("dead letter listing reachable", err == nil)
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if apiBase == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL and ADMIN_JWT_SECRET required")
		os.Exit(1)
	}
	var err error
	adminToken, err = signAdminToken(secret)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: sign token:", err)
		os.Exit(1)
	}
	client = studioclient.New(apiBase, studioclient.WithToken(adminToken))

	scenarios := []scenario{
		{"health", scenarioHealth},
		{"booking", scenarioBooking},
		{"lifecycle", scenarioLifecycle},
		{"board", scenarioBoard},
		{"contact", scenarioContact},
		{"payments", scenarioPayments},
		{"dead-letters", scenarioDeadLetters},
	}

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "ok"
		if t.failed > 0 {
			status = "FAILED"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  [%s] %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\nSOME SCENARIOS FAILED")
		os.Exit(1)
	}
	fmt.Println("\nALL SCENARIOS PASSED")
}
