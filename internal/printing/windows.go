package printing

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// rawPrintScript sends the staged file to the spooler with the RAW datatype.
// Inputs arrive through the environment so printer names never need quoting.
const rawPrintScript = `$ErrorActionPreference = 'Stop'
Add-Type -TypeDefinition @"
using System;
using System.Runtime.InteropServices;
public static class PosRawPrinter {
  [StructLayout(LayoutKind.Sequential, CharSet = CharSet.Unicode)]
  public class DOCINFO {
    [MarshalAs(UnmanagedType.LPWStr)] public string pDocName;
    [MarshalAs(UnmanagedType.LPWStr)] public string pOutputFile;
    [MarshalAs(UnmanagedType.LPWStr)] public string pDataType;
  }
  [DllImport("winspool.drv", EntryPoint = "OpenPrinterW", SetLastError = true, CharSet = CharSet.Unicode)]
  public static extern bool OpenPrinter(string name, out IntPtr handle, IntPtr defaults);
  [DllImport("winspool.drv", SetLastError = true)]
  public static extern bool ClosePrinter(IntPtr handle);
  [DllImport("winspool.drv", EntryPoint = "StartDocPrinterW", SetLastError = true, CharSet = CharSet.Unicode)]
  public static extern int StartDocPrinter(IntPtr handle, int level, [In] DOCINFO info);
  [DllImport("winspool.drv", SetLastError = true)]
  public static extern bool EndDocPrinter(IntPtr handle);
  [DllImport("winspool.drv", SetLastError = true)]
  public static extern bool StartPagePrinter(IntPtr handle);
  [DllImport("winspool.drv", SetLastError = true)]
  public static extern bool EndPagePrinter(IntPtr handle);
  [DllImport("winspool.drv", SetLastError = true)]
  public static extern bool WritePrinter(IntPtr handle, byte[] data, int count, out int written);
  public static int Send(string printer, string job, byte[] data) {
    IntPtr h;
    if (!OpenPrinter(printer, out h, IntPtr.Zero)) { return Marshal.GetLastWin32Error(); }
    try {
      var info = new DOCINFO { pDocName = job, pDataType = "RAW" };
      if (StartDocPrinter(h, 1, info) == 0) { return Marshal.GetLastWin32Error(); }
      try {
        StartPagePrinter(h);
        int written;
        if (!WritePrinter(h, data, data.Length, out written) || written != data.Length) { return Marshal.GetLastWin32Error(); }
        EndPagePrinter(h);
      } finally { EndDocPrinter(h); }
    } finally { ClosePrinter(h); }
    return 0;
  }
}
"@
$printer = $env:POS_RAW_PRINTER
if (-not $printer) { $printer = (Get-CimInstance -ClassName Win32_Printer | Where-Object { $_.Default }).Name }
$bytes = [System.IO.File]::ReadAllBytes($env:POS_RAW_FILE)
$code = [PosRawPrinter]::Send($printer, $env:POS_RAW_JOB, $bytes)
if ($code -eq 0) { Write-Output 'RAW_PRINT_OK' } else { Write-Output ('RAW_PRINT_FAIL:' + $code); exit 1 }
`

const documentPrintScript = `$ErrorActionPreference = 'Stop'
$printer = $env:POS_RAW_PRINTER
if ($printer) {
  Start-Process -FilePath $env:POS_RAW_FILE -Verb PrintTo -ArgumentList ('"' + $printer + '"') -WindowStyle Hidden -Wait
} else {
  Start-Process -FilePath $env:POS_RAW_FILE -Verb Print -WindowStyle Hidden -Wait
}
Write-Output 'DOC_PRINT_OK'
`

const listPrintersScript = `Get-Printer | Select-Object -ExpandProperty Name`

// WindowsProvider prints through the Windows spooler. Raw jobs go through a
// small winspool shim compiled on the fly by PowerShell.
type WindowsProvider struct {
	run CommandRunner
}

// Name implements RawPrintProvider.
func (p *WindowsProvider) Name() string { return "winspool" }

// PrintRaw implements RawPrintProvider.
func (p *WindowsProvider) PrintRaw(ctx context.Context, printer, job, path string) (string, error) {
	out, err := p.run(ctx, "powershell", powershellArgs(rawPrintScript), jobEnv(printer, job, path))
	return string(out), err
}

// PrintDocument implements RawPrintProvider.
func (p *WindowsProvider) PrintDocument(ctx context.Context, printer, job, path string) (string, error) {
	out, err := p.run(ctx, "powershell", powershellArgs(documentPrintScript), jobEnv(printer, job, path))
	return string(out), err
}

// ListPrinters implements RawPrintProvider.
func (p *WindowsProvider) ListPrinters(ctx context.Context) ([]string, error) {
	out, err := p.run(ctx, "powershell", powershellArgs(listPrintersScript), nil)
	if err != nil {
		return nil, fmt.Errorf("get-printer: %w", err)
	}
	var printers []string
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			printers = append(printers, name)
		}
	}
	return printers, scanner.Err()
}

// Classify implements RawPrintProvider.
func (p *WindowsProvider) Classify(output string) Outcome {
	switch {
	case strings.Contains(output, "_PRINT_FAIL"):
		return OutcomeFailed
	case strings.Contains(output, "_PRINT_OK"):
		return OutcomeConfirmed
	default:
		return OutcomeAmbiguous
	}
}

func powershellArgs(script string) []string {
	return []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", script}
}

func jobEnv(printer, job, path string) []string {
	return []string{
		"POS_RAW_PRINTER=" + strings.TrimSpace(printer),
		"POS_RAW_FILE=" + path,
		"POS_RAW_JOB=" + job,
	}
}
