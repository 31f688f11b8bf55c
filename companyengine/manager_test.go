package companyengine

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/liamcoop/adjudication/adjudication"
	"github.com/liamcoop/adjudication/rules"
)

func newTestManager(t *testing.T) (*Manager, StoreFactory) {
	t.Helper()
	stores := InMemoryStores()
	m, err := NewManager(stores, rules.DefaultCacheConfig())
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	return m, stores
}

func largeClaimFacts() map[string]any {
	benefit := &adjudication.PolicyBenefit{CopayAmount: 200, InNetworkPay: 80, InNetworkUsageLeft: 10000}
	in := adjudication.ClaimInput{BillAmount: 10000, IsInNetwork: true}
	return rules.NewFacts(in, benefit, adjudication.Calculate(in.BillAmount, benefit, in.IsInNetwork))
}

func TestCreateCompanyAndGetEngine(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.CreateCompany("acme"); err != nil {
		t.Fatalf("CreateCompany() failed: %v", err)
	}

	engine, err := m.GetEngine("acme")
	if err != nil {
		t.Fatalf("GetEngine() failed: %v", err)
	}
	if engine == nil {
		t.Fatal("GetEngine() returned nil engine")
	}
}

func TestGetEngineUnknownCompany(t *testing.T) {
	m, _ := newTestManager(t)

	if _, err := m.GetEngine("ghost"); !errors.Is(err, ErrCompanyNotFound) {
		t.Errorf("GetEngine() error = %v, want ErrCompanyNotFound", err)
	}
}

func TestCompanyIsolation(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateCompany("a")
	m.CreateCompany("b")

	engineA, _ := m.GetEngine("a")
	engineB, _ := m.GetEngine("b")

	if err := engineA.AddRule(&rules.Rule{ID: "large", Name: "Large", Expression: `Adjudication.totalClaimable > 5000.0`, Active: true}); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}

	resultsA, _ := engineA.EvaluateAll(largeClaimFacts())
	resultsB, _ := engineB.EvaluateAll(largeClaimFacts())

	if len(resultsA) != 1 || !resultsA[0].Matched {
		t.Errorf("company a should flag the claim, got %+v", resultsA)
	}
	if len(resultsB) != 0 {
		t.Errorf("company b should have no rules, got %d results", len(resultsB))
	}
}

func TestLoadCompaniesCompilesStoredRules(t *testing.T) {
	m, stores := newTestManager(t)

	stores("acme").Add(&rules.Rule{ID: "r", Name: "Large", Expression: `Adjudication.totalClaimable > 5000.0`, Active: true})

	if err := m.LoadCompanies([]string{"acme", "globex"}); err != nil {
		t.Fatalf("LoadCompanies() failed: %v", err)
	}

	if got := m.ListCompanies(); !reflect.DeepEqual(got, []string{"acme", "globex"}) {
		t.Errorf("ListCompanies() = %v, want [acme globex]", got)
	}

	engine, _ := m.GetEngine("acme")
	result, err := engine.Evaluate("r", largeClaimFacts())
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !result.Matched {
		t.Error("stored rule should match a 7840 claimable claim")
	}
}

func TestLoadCompaniesFailsOnBrokenRule(t *testing.T) {
	m, stores := newTestManager(t)
	stores("broken").Add(&rules.Rule{ID: "r", Name: "Broken", Expression: `Claim.billAmount >`, Active: true})

	if err := m.LoadCompanies([]string{"broken"}); err == nil {
		t.Error("LoadCompanies() should fail when a stored rule does not compile")
	}
	if _, err := m.GetEngine("broken"); !errors.Is(err, ErrCompanyNotFound) {
		t.Errorf("broken company should not be registered, got %v", err)
	}
}

// TestReloadCompanySwapsEngine verifies a reload picks up rules written behind the engine's back
func TestReloadCompanySwapsEngine(t *testing.T) {
	m, stores := newTestManager(t)
	m.CreateCompany("acme")
	before, _ := m.GetEngine("acme")

	stores("acme").Add(&rules.Rule{ID: "direct", Name: "Direct", Expression: `true`, Active: true})

	if err := m.ReloadCompany("acme"); err != nil {
		t.Fatalf("ReloadCompany() failed: %v", err)
	}

	after, _ := m.GetEngine("acme")
	if after == before {
		t.Error("ReloadCompany() should install a new engine")
	}

	result, err := after.Evaluate("direct", largeClaimFacts())
	if err != nil || !result.Matched {
		t.Errorf("reloaded engine should evaluate the stored rule, got %+v, %v", result, err)
	}
}

func TestReloadCompanyKeepsOldEngineOnFailure(t *testing.T) {
	m, stores := newTestManager(t)
	m.CreateCompany("acme")
	before, _ := m.GetEngine("acme")

	stores("acme").Add(&rules.Rule{ID: "bad", Name: "Bad", Expression: `>`, Active: true})

	if err := m.ReloadCompany("acme"); err == nil {
		t.Fatal("ReloadCompany() should fail on a broken stored rule")
	}

	after, _ := m.GetEngine("acme")
	if after != before {
		t.Error("failed reload should keep the previous engine")
	}
}

func TestReloadCompanyUnknown(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.ReloadCompany("ghost"); !errors.Is(err, ErrCompanyNotFound) {
		t.Errorf("ReloadCompany() error = %v, want ErrCompanyNotFound", err)
	}
}

func TestDeleteCompany(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateCompany("acme")

	if err := m.DeleteCompany("acme"); err != nil {
		t.Fatalf("DeleteCompany() failed: %v", err)
	}
	if _, err := m.GetEngine("acme"); !errors.Is(err, ErrCompanyNotFound) {
		t.Errorf("GetEngine() after delete error = %v, want ErrCompanyNotFound", err)
	}
	if err := m.DeleteCompany("acme"); !errors.Is(err, ErrCompanyNotFound) {
		t.Errorf("second DeleteCompany() error = %v, want ErrCompanyNotFound", err)
	}
	if len(m.ListCompanies()) != 0 {
		t.Errorf("ListCompanies() = %v, want empty", m.ListCompanies())
	}
}

func TestConcurrentGetAndReload(t *testing.T) {
	m, _ := newTestManager(t)
	m.CreateCompany("acme")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			engine, err := m.GetEngine("acme")
			if err != nil {
				t.Errorf("GetEngine() failed: %v", err)
				return
			}
			engine.EvaluateAll(largeClaimFacts())
		}()
		go func() {
			defer wg.Done()
			if err := m.ReloadCompany("acme"); err != nil {
				t.Errorf("ReloadCompany() failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
