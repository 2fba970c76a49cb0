package unittest

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	om "github.com/jacobsa/oglematchers"
	"github.com/mgutz/ansi"
	"github.com/pkg/errors"
)

// Test suite.
//
// Embedded in suites run by RunTestSuite. Every test method runs as a subtest
// of its own, with the suite initialized for it.
type TestSuite struct {
	t *testing.T
}

// Initialize the test suite.
func (s *TestSuite) Initialize(t *testing.T) {
	s.t = t
}

// Suite methods, mapped by name.
type suiteMethods struct {
	setUpSuite, tearDownSuite, setUp, tearDown, initialize reflect.Value
	tests                                                  []reflect.Method
}

func mapSuiteMethods(sType reflect.Type, t *testing.T) (m suiteMethods) {
	hooks := map[string]*reflect.Value{
		"SetUpSuite":    &m.setUpSuite,
		"TearDownSuite": &m.tearDownSuite,
		"SetUp":         &m.setUp,
		"TearDown":      &m.tearDown,
	}

	for i := 0; i < sType.NumMethod(); i++ {
		meth := sType.Method(i)
		fun := meth.Func

		if hook, ok := hooks[meth.Name]; ok {
			if !funcTakesSelfReturns0(fun) {
				t.Fatalf("Test suite method must have the following signature: %s()", meth.Name)
			}
			*hook = fun
		} else if meth.Name == "Initialize" {
			m.initialize = fun
		} else if strings.HasPrefix(meth.Name, "Test") && len(meth.Name) > 4 {
			if !funcTakesSelfReturns0(fun) {
				t.Logf("Ignoring test as it does not match the test method signature: %s", meth.Name)
				continue
			}
			m.tests = append(m.tests, meth)
		}
	}

	if !m.initialize.IsValid() {
		t.Fatalf("Test suite must embed unittest.TestSuite: %s", sType)
	}

	return
}

// Run a test suite.
func RunTestSuite(suite interface{}, t *testing.T) {
	sValue := reflect.ValueOf(suite)
	sIndType := reflect.Indirect(sValue).Type()
	m := mapSuiteMethods(sValue.Type(), t)

	m.initialize.Call([]reflect.Value{sValue, reflect.ValueOf(t)})

	if m.setUpSuite.IsValid() {
		m.setUpSuite.Call([]reflect.Value{sValue})
	}
	if m.tearDownSuite.IsValid() {
		defer func() {
			m.initialize.Call([]reflect.Value{sValue, reflect.ValueOf(t)})
			m.tearDownSuite.Call([]reflect.Value{sValue})
		}()
	}

	fmt.Println(ansi.Color(sIndType.Name(), "blue"))

	for _, testMethod := range m.tests {
		fun := testMethod.Func

		t.Run(testMethod.Name, func(t *testing.T) {
			m.initialize.Call([]reflect.Value{sValue, reflect.ValueOf(t)})
			runTest(t, testMethod.Name, func() {
				if m.setUp.IsValid() {
					m.setUp.Call([]reflect.Value{sValue})
				}
				if m.tearDown.IsValid() {
					defer m.tearDown.Call([]reflect.Value{sValue})
				}

				fun.Call([]reflect.Value{sValue})
			})
		})
	}
}

// Run a single test with its output captured.
func runTest(t *testing.T, name string, fn func()) {
	hijacker, err := newStdHijacker()
	if err != nil {
		t.Fatalf("Failed to hijack stdout/stderr: %v", err)
	}

	hijacker.Hijack()

	defer func() {
		hijacker.Release()

		result := ansi.Color("OK", "green")
		if t.Failed() {
			result = ansi.Color("FAIL", "red")
		}

		output := string(hijacker.Bytes())
		if len(output) == 0 {
			fmt.Printf("    %s... %s\n", name, result)
			return
		}

		fmt.Printf("    %s...\n", name)
		fmt.Println(ansi.Color("---------------------------> captured stdout/stderr <--------------------------", "cyan"))
		fmt.Print(output)
		if !strings.HasSuffix(output, "\n") {
			fmt.Print("\n")
		}
		fmt.Print("\x1b[0m")
		fmt.Println(ansi.Color("---------------------------< captured stdout/stderr >--------------------------", "cyan"))
		fmt.Printf("    ... %s\n", result)
	}()

	fn()
}

func (s *TestSuite) Error(args ...interface{}) {
	s.t.Helper()
	s.t.Error(args...)
}

func (s *TestSuite) Errorf(format string, args ...interface{}) {
	s.t.Helper()
	s.t.Errorf(format, args...)
}

func (s *TestSuite) Fatal(args ...interface{}) {
	s.t.Helper()
	s.t.Fatal(args...)
}

func (s *TestSuite) Fatalf(format string, args ...interface{}) {
	s.t.Helper()
	s.t.Fatalf(format, args...)
}

func (s *TestSuite) AssertEqual(expected, actual interface{}) {
	s.t.Helper()
	if err := om.Equals(expected).Matches(actual); err != nil {
		s.Fatalf("%v is not equal to %v", actual, expected)
	}
}

func (s *TestSuite) AssertIsNil(actual interface{}) {
	s.t.Helper()
	if !isNil(actual) {
		s.Fatalf("%v is not nil", actual)
	}
}

func (s *TestSuite) AssertIsNotNil(actual interface{}) {
	s.t.Helper()
	if isNil(actual) {
		s.Fatalf("%v is nil", actual)
	}
}

// Assert that an error is, or wraps, a target error.
func (s *TestSuite) AssertErrorIs(err, target error) {
	s.t.Helper()
	if !errors.Is(err, target) {
		s.Fatalf("Expected error %v, but got: %v", target, err)
	}
}

// Assert that no error occurred.
func (s *TestSuite) AssertNoError(err error) {
	s.t.Helper()
	if err != nil {
		s.Fatalf("Unexpected error: %v", err)
	}
}

func (s *TestSuite) Logf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

func (s *TestSuite) T() *testing.T {
	return s.t
}
