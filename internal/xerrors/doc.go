// Package xerrors provides the tagged error sum returned by the extraction
// driver.
//
// Every failure the driver can produce carries a Kind plus whatever
// structured fields are relevant to that Kind (the offending entry name, a
// limit and the value that would have exceeded it, and so on), so a caller
// can branch on Kind instead of matching message strings.
//
//	if _, err := drv.ExtractZipFile(path); err != nil {
//	    var xerr *xerrors.Error
//	    if errors.As(err, &xerr) && xerr.Kind == xerrors.KindPathEscape {
//	        // handle Zip Slip attempt
//	    }
//	}
package xerrors
